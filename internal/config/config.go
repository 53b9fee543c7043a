// Package config loads learnloop settings from an optional YAML file and
// LEARNLOOP_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"learnloop/internal/blob"
	"learnloop/internal/core"
	"learnloop/internal/logging"
	"strings"

	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "LEARNLOOP"
	configFileName = "learnloop"
	configFileType = "yaml"
)

// Config is the typed view of every supported setting.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Events  EventsConfig  `mapstructure:"events"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type ArchiveConfig struct {
	Driver            string `mapstructure:"driver"`
	Prefix            string `mapstructure:"prefix"`
	FSRoot            string `mapstructure:"fs_root"`
	S3Bucket          string `mapstructure:"s3_bucket"`
	S3Region          string `mapstructure:"s3_region"`
	S3Endpoint        string `mapstructure:"s3_endpoint"`
	S3PathStyle       bool   `mapstructure:"s3_path_style"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
	S3SessionToken    string `mapstructure:"s3_session_token"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the prometheus recorder and span export. An empty
// Namespace disables metrics; Textfile receives them in exposition format
// when the process exits.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	Textfile  string `mapstructure:"textfile"`
	Tracing   bool   `mapstructure:"tracing"`
}

// EventsConfig controls lifecycle event publishing. An empty NATSURL
// disables it.
type EventsConfig struct {
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

var defaults = map[string]any{
	"storage.driver":               string(core.StorageSQLite),
	"storage.sqlite_path":          "learnloop.db",
	"storage.postgres_dsn":         "",
	"archive.driver":               string(blob.DriverFilesystem),
	"archive.prefix":               "snapshots/",
	"archive.fs_root":              "archive",
	"archive.s3_bucket":            "",
	"archive.s3_region":            "us-east-1",
	"archive.s3_endpoint":          "",
	"archive.s3_path_style":        false,
	"archive.s3_access_key_id":     "",
	"archive.s3_secret_access_key": "",
	"archive.s3_session_token":     "",
	"log.level":                    "info",
	"log.format":                   logging.FormatJSON,
	"metrics.namespace":            "",
	"metrics.textfile":             "",
	"metrics.tracing":              false,
	"events.nats_url":              "",
	"events.subject_prefix":        "learnloop",
}

// legacyEnv lists additional environment names accepted for a key.
var legacyEnv = map[string][]string{
	"storage.sqlite_path":  {"LEARNLOOP_SQLITE_PATH"},
	"storage.postgres_dsn": {"LEARNLOOP_POSTGRES_DSN"},
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envNames := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		_ = v.BindEnv(append([]string{key}, envNames...)...)
	}
	return v
}

// Load reads path (or ./learnloop.yaml when path is empty) and the
// environment into a validated Config. A missing default file is not an
// error; a missing explicit path is.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers and incomplete backend settings.
func (c Config) Validate() error {
	switch core.StorageDriver(c.Storage.Driver) {
	case core.StorageMemory, core.StorageSQLite:
	case core.StoragePostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return errors.New("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q (want memory, sqlite or postgres)", c.Storage.Driver)
	}
	switch blob.Driver(c.Archive.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if strings.TrimSpace(c.Archive.S3Bucket) == "" {
			return errors.New("archive.s3_bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown archive.driver %q (want fs, memory or s3)", c.Archive.Driver)
	}
	if err := c.Logging().Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// StorageOptions converts the storage section for core.OpenPersistentStore.
func (c Config) StorageOptions() core.StorageOptions {
	return core.StorageOptions{
		Driver:      core.StorageDriver(c.Storage.Driver),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// Blob converts the archive section for blob.Open.
func (c Config) Blob() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Archive.Driver),
		FSRoot: c.Archive.FSRoot,
		S3: blob.S3Config{
			Bucket:          c.Archive.S3Bucket,
			Region:          c.Archive.S3Region,
			Endpoint:        c.Archive.S3Endpoint,
			PathStyle:       c.Archive.S3PathStyle,
			AccessKeyID:     c.Archive.S3AccessKeyID,
			SecretAccessKey: c.Archive.S3SecretAccessKey,
			SessionToken:    c.Archive.S3SessionToken,
		},
	}
}

// Logging converts the log section for logging.New.
func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}
