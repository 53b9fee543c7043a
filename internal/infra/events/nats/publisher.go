// Package nats publishes learnloop lifecycle events to NATS. The Publisher is
// a core.AuditRecorder: every audited service operation becomes one message on
// <prefix>.<entity>.<action>, with rejected operations suffixed ".rejected".
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"learnloop/internal/core"
	"strings"
	"time"

	natsio "github.com/nats-io/nats.go"
)

const (
	DefaultSubjectPrefix = "learnloop"

	HeaderOperation = "Learnloop-Operation"
	HeaderStatus    = "Learnloop-Status"
	HeaderEventID   = "Learnloop-Event-Id"

	rejectedSuffix = "rejected"
	flushTimeout   = 5 * time.Second
)

// Publisher sends audit entries to NATS subjects.
type Publisher struct {
	conn   *natsio.Conn
	owned  bool
	prefix string
	logger core.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger routes publish failures to logger.
func WithLogger(logger core.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSubjectPrefix overrides the subject prefix.
func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix = strings.Trim(strings.TrimSpace(prefix), "."); prefix != "" {
			p.prefix = prefix
		}
	}
}

// New wraps an existing connection. The caller keeps ownership of conn.
func New(conn *natsio.Conn, opts ...Option) *Publisher {
	p := &Publisher{conn: conn, prefix: DefaultSubjectPrefix, logger: nopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Connect dials url and returns a Publisher that owns the connection.
func Connect(url string, opts ...Option) (*Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("nats url required")
	}
	conn, err := natsio.Connect(url,
		natsio.Name("learnloop"),
		natsio.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	p := New(conn, opts...)
	p.owned = true
	return p, nil
}

// Subject returns the subject an entry is published on.
func (p *Publisher) Subject(entry core.AuditEntry) string {
	parts := []string{p.prefix, string(entry.Entity), string(entry.Action)}
	if entry.Status == core.AuditStatusError {
		parts = append(parts, rejectedSuffix)
	}
	return strings.Join(parts, ".")
}

// Record publishes entry. Publish failures are logged, never returned, so a
// broker outage cannot fail a committed operation.
func (p *Publisher) Record(_ context.Context, entry core.AuditEntry) {
	if err := p.Publish(entry); err != nil {
		p.logger.Error("lifecycle event publish failed", "operation", entry.Operation, "entity_id", entry.EntityID, "error", err)
	}
}

// Publish encodes entry as JSON and sends it.
func (p *Publisher) Publish(entry core.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := natsio.NewMsg(p.Subject(entry))
	msg.Data = data
	msg.Header.Set(HeaderOperation, entry.Operation)
	msg.Header.Set(HeaderStatus, string(entry.Status))
	if entry.ID != "" {
		msg.Header.Set(HeaderEventID, entry.ID)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Flush waits until the server has processed every buffered message. A
// context without a deadline waits at most flushTimeout.
func (p *Publisher) Flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	return nil
}

// Close drains an owned connection. Borrowed connections are left open.
func (p *Publisher) Close() error {
	if !p.owned {
		return nil
	}
	if err := p.conn.Drain(); err != nil && !errors.Is(err, natsio.ErrConnectionClosed) {
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
