package core

import (
	"context"
	"fmt"
	"learnloop/pkg/domain"
	"sync"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	opts = append([]ServiceOption{WithClock(ClockFunc(func() time.Time { return fixedNow }))}, opts...)
	return NewInMemoryService(NewDefaultRulesEngine(), opts...)
}

func mustDraft(t *testing.T, svc *Service, title string) Idea {
	t.Helper()
	idea, _, err := svc.CreateDraft(context.Background(), title, title+" description")
	if err != nil {
		t.Fatalf("create draft %q: %v", title, err)
	}
	return idea
}

func validExperimentInput(title string) ExperimentInput {
	return ExperimentInput{
		Title:          title,
		Description:    "try it for a week",
		Hypothesis:     "morning sessions improve focus",
		SuccessMetric:  "four focused sessions",
		Falsifiability: "fewer than two focused sessions",
	}
}

func mustExperiment(t *testing.T, svc *Service, title string) Experiment {
	t.Helper()
	exp, _, err := svc.CreateExperiment(context.Background(), validExperimentInput(title))
	if err != nil {
		t.Fatalf("create experiment %q: %v", title, err)
	}
	return exp
}

// mustCompletedExperiment walks a new experiment to completed (version 3).
func mustCompletedExperiment(t *testing.T, svc *Service) Experiment {
	t.Helper()
	ctx := context.Background()
	exp := mustExperiment(t, svc, "completed run")
	exp, _, err := svc.AdvanceExperimentStatus(ctx, exp.ID, domain.ExperimentStatusInProgress, exp.Version)
	if err != nil {
		t.Fatalf("start experiment: %v", err)
	}
	exp, _, err = svc.AdvanceExperimentStatus(ctx, exp.ID, domain.ExperimentStatusCompleted, exp.Version)
	if err != nil {
		t.Fatalf("complete experiment: %v", err)
	}
	return exp
}

func mustOutcome(t *testing.T, svc *Service, experimentID int64, result string) Outcome {
	t.Helper()
	outcome, _, err := svc.CreateOutcome(context.Background(), experimentID, result, "notes")
	if err != nil {
		t.Fatalf("create outcome: %v", err)
	}
	return outcome
}

func validReflectionInput(outcomeID int64) ReflectionInput {
	return ReflectionInput{
		OutcomeID: outcomeID,
		Context:   domain.ReflectionContext{EmotionBefore: 3, ConfidenceBefore: 6},
		Breakdown: domain.ReflectionBreakdown{
			WhatHappened:  "ran five sessions",
			WhatWorked:    "phone in another room",
			WhatDidntWork: "late starts",
			Surprises:     "energy was higher",
		},
		Growth: domain.ReflectionGrowth{
			LessonLearned: "environment beats willpower",
			NextAction:    "repeat with evenings",
		},
		Result: domain.ReflectionResult{EmotionAfter: 4, ConfidenceAfter: 8},
		Tags:   []string{"focus"},
	}
}

type captureLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *captureLogger) add(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf("%s:%s %v", level, msg, args))
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("d", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("i", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("w", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("e", msg, args...) }

func (l *captureLogger) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *captureAuditRecorder) all() []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuditEntry(nil), r.entries...)
}

type metricObservation struct {
	operation string
	success   bool
}

type captureMetricsRecorder struct {
	mu  sync.Mutex
	obs []metricObservation
}

func (r *captureMetricsRecorder) Observe(_ context.Context, operation string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, metricObservation{operation: operation, success: success})
}

type captureTracer struct {
	mu    sync.Mutex
	spans []*captureSpan
}

type captureSpan struct {
	operation string
	ended     bool
	err       error
}

func (s *captureSpan) End(err error) {
	s.ended = true
	s.err = err
}

func (t *captureTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	t.mu.Lock()
	defer t.mu.Unlock()
	span := &captureSpan{operation: operation}
	t.spans = append(t.spans, span)
	return ctx, span
}
