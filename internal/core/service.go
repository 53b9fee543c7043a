package core

import (
	"context"
	"learnloop/internal/infra/persistence/memory"
	"learnloop/pkg/domain"
	"time"

	"github.com/google/uuid"
)

// Service exposes the learning-loop operations. Every mutation runs in one
// store transaction guarded by the caller's expected version.
type Service struct {
	store   PersistentStore
	engine  *RulesEngine
	logger  Logger
	clock   Clock
	now     func() time.Time
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	logger  Logger
	clock   Clock
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
}

// WithLogger routes service logs to logger.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the clock used for record timestamps and audit entries.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithAuditRecorder registers an audit sink.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder registers a metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer registers a tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
}

type nowSetter interface {
	SetNowFunc(func() time.Time)
}

type nowProvider interface {
	NowFunc() func() time.Time
}

type rulesEngineProvider interface {
	RulesEngine() *RulesEngine
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.clock != nil {
		if setter, ok := store.(nowSetter); ok {
			setter.SetNowFunc(options.clock.Now)
		}
	}
	return &Service{
		store:   store,
		engine:  extractRulesEngine(store),
		logger:  options.logger,
		clock:   options.clock,
		now:     selectNowFunc(store, options.clock),
		audit:   options.audit,
		metrics: options.metrics,
		tracer:  options.tracer,
	}
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// RulesEngine returns the engine evaluated on commit, when the store exposes one.
func (s *Service) RulesEngine() *RulesEngine { return s.engine }

func extractRulesEngine(store PersistentStore) *RulesEngine {
	if provider, ok := store.(rulesEngineProvider); ok {
		return provider.RulesEngine()
	}
	return nil
}

// selectNowFunc prefers the store's time provider, then the configured clock,
// then the system clock in UTC.
func selectNowFunc(store PersistentStore, clock Clock) func() time.Time {
	if provider, ok := store.(nowProvider); ok {
		if fn := provider.NowFunc(); fn != nil {
			return func() time.Time { return fn().UTC() }
		}
	}
	if clock != nil {
		return clock.Now
	}
	return func() time.Time { return time.Now().UTC() }
}

// auditRef is filled in by an operation with the record it touched.
type auditRef struct {
	id      int64
	version int64
}

func (r *auditRef) set(id, version int64) {
	r.id = id
	r.version = version
}

// run executes fn in a store transaction wrapped with tracing, metrics,
// logging and audit.
func (s *Service) run(ctx context.Context, op string, ref *auditRef, fn func(Transaction) error) (Result, error) {
	if ref == nil {
		ref = &auditRef{}
	}
	ctx, span := s.tracer.Start(ctx, op)
	started := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	elapsed := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	s.logViolations(op, res)

	if err != nil {
		if domain.IsDomainError(err) {
			s.logger.Warn("operation rejected", "operation", op, "entity_id", ref.id, "error", err)
		} else {
			s.logger.Error("operation failed", "operation", op, "entity_id", ref.id, "error", err)
		}
		s.recordAuditError(ctx, op, ref.id, elapsed, err)
		return res, err
	}
	s.logger.Debug("operation completed", "operation", op, "entity_id", ref.id, "version", ref.version, "duration", elapsed)
	s.recordAuditSuccess(ctx, op, *ref, elapsed)
	return res, nil
}

func (s *Service) logViolations(op string, res Result) {
	for _, v := range res.Violations {
		if v.Severity == SeverityBlock {
			continue
		}
		s.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "severity", string(v.Severity), "entity", string(v.Entity), "entity_id", v.EntityID, "message", v.Message)
	}
}

func (s *Service) recordAuditSuccess(ctx context.Context, op string, ref auditRef, duration time.Duration) {
	entry, ok := s.newAuditEntry(op, ref.id, duration)
	if !ok {
		return
	}
	entry.Version = ref.version
	entry.Status = AuditStatusSuccess
	s.audit.Record(ctx, entry)
}

func (s *Service) recordAuditError(ctx context.Context, op string, entityID int64, duration time.Duration, err error) {
	entry, ok := s.newAuditEntry(op, entityID, duration)
	if !ok {
		return
	}
	entry.Status = AuditStatusError
	if err != nil {
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

func (s *Service) newAuditEntry(op string, entityID int64, duration time.Duration) (AuditEntry, bool) {
	meta, ok := operationMeta[op]
	if !ok {
		return AuditEntry{}, false
	}
	return AuditEntry{
		ID:        uuid.NewString(),
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Duration:  duration,
		Timestamp: s.now(),
	}, true
}
