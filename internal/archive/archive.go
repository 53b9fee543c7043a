// Package archive writes committed learnloop state to a blob store as JSON
// snapshots and restores it from them.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"learnloop/internal/blob"
	"learnloop/internal/core"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Format tags every archived document so readers can reject foreign blobs.
const Format = "learnloop.snapshot/v1"

const (
	defaultPrefix = "snapshots/"
	contentType   = "application/json"
	keyTimeLayout = "20060102T150405Z"
)

// ErrNoSnapshots is returned by Latest when the prefix holds no archives.
var ErrNoSnapshots = errors.New("archive: no snapshots")

// ErrUnknownFormat is returned when a blob is not a learnloop snapshot.
var ErrUnknownFormat = errors.New("archive: unknown snapshot format")

// Source exports and imports whole-store snapshots. *core.Service satisfies it.
type Source interface {
	ExportSnapshot(ctx context.Context) (core.Snapshot, error)
	ImportSnapshot(ctx context.Context, snapshot core.Snapshot) error
}

// Document is the archived JSON envelope.
type Document struct {
	Format     string        `json:"format"`
	ExportedAt time.Time     `json:"exportedAt"`
	Snapshot   core.Snapshot `json:"snapshot"`
}

// Archiver moves snapshots between a Source and a blob store.
type Archiver struct {
	store  blob.Store
	source Source
	logger core.Logger
	prefix string
	now    func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithLogger routes archive logs to logger.
func WithLogger(logger core.Logger) Option {
	return func(a *Archiver) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithPrefix sets the key prefix archives are written under.
func WithPrefix(prefix string) Option {
	return func(a *Archiver) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			if !strings.HasSuffix(prefix, "/") {
				prefix += "/"
			}
			a.prefix = prefix
		}
	}
}

// WithClock sets the time source used for keys and envelopes.
func WithClock(clock core.Clock) Option {
	return func(a *Archiver) {
		if clock != nil {
			a.now = clock.Now
		}
	}
}

// New returns an Archiver writing to store.
func New(store blob.Store, source Source, opts ...Option) *Archiver {
	a := &Archiver{
		store:  store,
		source: source,
		logger: discardLogger{},
		prefix: defaultPrefix,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Prefix returns the key prefix archives are written under.
func (a *Archiver) Prefix() string { return a.prefix }

// Export writes the current state as a new blob and returns its info. Keys
// start with a UTC timestamp so lexical order is chronological.
func (a *Archiver) Export(ctx context.Context) (blob.Info, error) {
	snapshot, err := a.source.ExportSnapshot(ctx)
	if err != nil {
		return blob.Info{}, fmt.Errorf("export snapshot: %w", err)
	}
	exportedAt := a.now().UTC()
	doc := Document{Format: Format, ExportedAt: exportedAt, Snapshot: snapshot}
	payload, err := json.Marshal(doc)
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode snapshot: %w", err)
	}
	key := a.prefix + exportedAt.Format(keyTimeLayout) + "-" + uuid.NewString() + ".json"
	info, err := a.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata:    countMetadata(snapshot),
	})
	if err != nil {
		a.logger.Error("snapshot archive failed", "key", key, "driver", string(a.store.Driver()), "error", err)
		return blob.Info{}, fmt.Errorf("store snapshot: %w", err)
	}
	a.logger.Info("snapshot archived", "key", info.Key, "driver", string(a.store.Driver()), "size_bytes", info.Size)
	return info, nil
}

// Read decodes the archived document at key without importing it.
func (a *Archiver) Read(ctx context.Context, key string) (Document, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return Document{}, fmt.Errorf("open snapshot %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()

	var doc Document
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	if doc.Format != Format {
		return Document{}, fmt.Errorf("%w: %q in %s", ErrUnknownFormat, doc.Format, key)
	}
	return doc, nil
}

// Import replaces the source's state with the snapshot stored at key.
func (a *Archiver) Import(ctx context.Context, key string) (Document, error) {
	doc, err := a.Read(ctx, key)
	if err != nil {
		return Document{}, err
	}
	if err := a.source.ImportSnapshot(ctx, doc.Snapshot); err != nil {
		return Document{}, fmt.Errorf("import snapshot %s: %w", key, err)
	}
	a.logger.Info("snapshot restored", "key", key, "exported_at", doc.ExportedAt)
	return doc, nil
}

// List returns archived snapshots oldest first.
func (a *Archiver) List(ctx context.Context) ([]blob.Info, error) {
	infos, err := a.store.List(ctx, a.prefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := infos[:0]
	for _, info := range infos {
		if strings.HasSuffix(info.Key, ".json") {
			out = append(out, info)
		}
	}
	return out, nil
}

// Latest returns the most recent archive.
func (a *Archiver) Latest(ctx context.Context) (blob.Info, error) {
	infos, err := a.List(ctx)
	if err != nil {
		return blob.Info{}, err
	}
	if len(infos) == 0 {
		return blob.Info{}, ErrNoSnapshots
	}
	return infos[len(infos)-1], nil
}

// ImportLatest imports the most recent archive.
func (a *Archiver) ImportLatest(ctx context.Context) (Document, error) {
	latest, err := a.Latest(ctx)
	if err != nil {
		return Document{}, err
	}
	return a.Import(ctx, latest.Key)
}

func countMetadata(s core.Snapshot) map[string]string {
	return map[string]string{
		"format":      Format,
		"ideas":       strconv.Itoa(len(s.Ideas)),
		"experiments": strconv.Itoa(len(s.Experiments)),
		"outcomes":    strconv.Itoa(len(s.Outcomes)),
		"reflections": strconv.Itoa(len(s.Reflections)),
	}
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
