package config

import (
	"learnloop/internal/blob"
	"learnloop/internal/core"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "learnloop.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "fs", cfg.Archive.Driver)
	assert.Equal(t, "snapshots/", cfg.Archive.Prefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "learnloop", cfg.Events.SubjectPrefix)
	assert.Empty(t, cfg.Events.NATSURL)
	assert.Empty(t, cfg.Metrics.Namespace)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "learnloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: memory
archive:
  driver: s3
  s3_bucket: loop-archive
  s3_path_style: true
log:
  level: debug
  format: console
metrics:
  namespace: loop
events:
  nats_url: nats://127.0.0.1:4222
`), 0o600))
	t.Setenv("LEARNLOOP_LOG_LEVEL", "warn")
	t.Setenv("LEARNLOOP_ARCHIVE_S3_ENDPOINT", "http://minio:9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "loop", cfg.Metrics.Namespace)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Events.NATSURL)

	b := cfg.Blob()
	assert.Equal(t, blob.DriverS3, b.Driver)
	assert.Equal(t, "loop-archive", b.S3.Bucket)
	assert.Equal(t, "http://minio:9000", b.S3.Endpoint)
	assert.True(t, b.S3.PathStyle)
	assert.Equal(t, "us-east-1", b.S3.Region)
}

func TestLegacyStorageEnvNames(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEARNLOOP_SQLITE_PATH", "/var/lib/learnloop/state.db")
	cfg, err := Load("")
	require.NoError(t, err)
	opts := cfg.StorageOptions()
	assert.Equal(t, core.StorageSQLite, opts.Driver)
	assert.Equal(t, "/var/lib/learnloop/state.db", opts.SQLitePath)

	t.Setenv("LEARNLOOP_STORAGE_SQLITE_PATH", "/srv/primary.db")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/primary.db", cfg.Storage.SQLitePath)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storage: StorageConfig{Driver: "sqlite"},
			Archive: ArchiveConfig{Driver: "fs"},
			Log:     LogConfig{Level: "info", Format: "json"},
		}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Driver = "mongo" }, wantErr: "unknown storage.driver"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: "storage.postgres_dsn"},
		{name: "postgres with dsn", mutate: func(c *Config) {
			c.Storage.Driver = "postgres"
			c.Storage.PostgresDSN = "postgres://localhost/learnloop"
		}},
		{name: "unknown archive", mutate: func(c *Config) { c.Archive.Driver = "tape" }, wantErr: "unknown archive.driver"},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Archive.Driver = "s3" }, wantErr: "archive.s3_bucket"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "shout" }, wantErr: "log:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRejectsUnknownDriverFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEARNLOOP_STORAGE_DRIVER", "cassandra")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}
