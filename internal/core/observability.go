package core

import (
	"context"
	"time"
)

// Logger is the minimal structured logging contract used by the service.
// Args are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies the time used for record timestamps and audit entries.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the function's time in UTC, or the system time when f is nil.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// AuditStatus captures the outcome of an audited operation.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one service operation for audit sinks.
type AuditEntry struct {
	ID        string        `json:"id"`
	Operation string        `json:"operation"`
	Entity    EntityType    `json:"entity"`
	Action    Action        `json:"action"`
	EntityID  int64         `json:"entityId,omitempty"`
	Version   int64         `json:"version,omitempty"`
	Status    AuditStatus   `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// AuditRecorder receives audit entries for every service operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes operation latency and outcome.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended with the operation's error, if any.
type TraceSpan interface {
	End(err error)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// operationMeta maps audited operation names to the entity and action they touch.
var operationMeta = map[string]struct {
	entity EntityType
	action Action
}{
	opCreateDraft:             {EntityIdea, ActionCreate},
	opCreateIdea:              {EntityIdea, ActionCreate},
	opUpdateDraft:             {EntityIdea, ActionUpdate},
	opPublishIdea:             {EntityIdea, ActionUpdate},
	opAdvanceIdeaStatus:       {EntityIdea, ActionUpdate},
	opDeleteIdea:              {EntityIdea, ActionDelete},
	opCreateExperiment:        {EntityExperiment, ActionCreate},
	opUpdateExperiment:        {EntityExperiment, ActionUpdate},
	opAdvanceExperimentStatus: {EntityExperiment, ActionUpdate},
	opDeleteExperiment:        {EntityExperiment, ActionDelete},
	opCreateOutcome:           {EntityOutcome, ActionCreate},
	opUpdateOutcomeResult:     {EntityOutcome, ActionUpdate},
	opDeleteOutcome:           {EntityOutcome, ActionDelete},
	opCreateReflection:        {EntityReflection, ActionCreate},
}

const (
	opCreateDraft             = "create_draft"
	opCreateIdea              = "create_idea"
	opUpdateDraft             = "update_draft"
	opPublishIdea             = "publish_idea"
	opAdvanceIdeaStatus       = "advance_idea_status"
	opDeleteIdea              = "delete_idea"
	opCreateExperiment        = "create_experiment"
	opUpdateExperiment        = "update_experiment"
	opAdvanceExperimentStatus = "advance_experiment_status"
	opDeleteExperiment        = "delete_experiment"
	opCreateOutcome           = "create_outcome"
	opUpdateOutcomeResult     = "update_outcome_result"
	opDeleteOutcome           = "delete_outcome"
	opCreateReflection        = "create_reflection"
	opImportSnapshot          = "import_snapshot"
)
