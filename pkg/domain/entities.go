// Package domain defines the learning-loop records, their lifecycle state
// machines, the error taxonomy and the rule evaluation primitives used by
// learnloop.
package domain

import (
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityIdea identifies an idea record.
	EntityIdea EntityType = "idea"
	// EntityExperiment identifies an experiment record.
	EntityExperiment EntityType = "experiment"
	// EntityOutcome identifies an outcome record.
	EntityOutcome EntityType = "outcome"
	// EntityReflection identifies a reflection record.
	EntityReflection EntityType = "reflection"
)

// IdeaStatus represents the stages of the learning loop an idea moves through.
type IdeaStatus string

// Idea lifecycle stages, in loop order.
const (
	IdeaStatusDraft      IdeaStatus = "draft"
	IdeaStatusProposed   IdeaStatus = "proposed"
	IdeaStatusExperiment IdeaStatus = "experiment"
	IdeaStatusOutcome    IdeaStatus = "outcome"
	IdeaStatusReflection IdeaStatus = "reflection"
)

// ExperimentStatus enumerates experiment workflow states.
type ExperimentStatus string

// Experiment statuses, in workflow order.
const (
	ExperimentStatusPlanned    ExperimentStatus = "planned"
	ExperimentStatusInProgress ExperimentStatus = "in-progress"
	ExperimentStatusCompleted  ExperimentStatus = "completed"
)

// OutcomeResult is the enumerated verdict linked back onto an experiment.
type OutcomeResult string

// Enumerated outcome results.
const (
	OutcomeSuccess OutcomeResult = "Success"
	OutcomeFailed  OutcomeResult = "Failed"
)

// ParseOutcomeResult reports whether raw names an enumerated result.
func ParseOutcomeResult(raw string) (OutcomeResult, bool) {
	switch OutcomeResult(raw) {
	case OutcomeSuccess, OutcomeFailed:
		return OutcomeResult(raw), true
	}
	return "", false
}

// Visibility controls who may read a reflection.
type Visibility string

// Reflection visibilities.
const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Versioned extends Base with the optimistic-concurrency version counter.
// Version starts at 1 and grows by exactly one per committed mutation.
type Versioned struct {
	Base
	Version int64 `json:"version"`
}

// CurrentVersion returns the stored version.
func (v Versioned) CurrentVersion() int64 { return v.Version }

// Record returns the identity, timestamps and version of the record.
func (v Versioned) Record() Versioned { return v }

// Restore overwrites identity, timestamps and version, discarding any
// changes a mutator made to them.
func (v *Versioned) Restore(meta Versioned) { *v = meta }

// Bump marks a successful mutation.
func (v *Versioned) Bump(now time.Time) {
	v.Version++
	v.UpdatedAt = now
}

// Idea is the unit of the learning loop.
type Idea struct {
	Versioned
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      IdeaStatus `json:"status"`
}

// Experiment tests an idea through a falsifiable hypothesis.
type Experiment struct {
	Versioned
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Hypothesis     string           `json:"hypothesis"`
	SuccessMetric  string           `json:"successMetric"`
	Falsifiability string           `json:"falsifiability"`
	Status         ExperimentStatus `json:"status"`
	LinkedIdeaID   *int64           `json:"linkedIdeaId,omitempty"`
	OutcomeResult  *OutcomeResult   `json:"outcomeResult,omitempty"`
}

// Outcome records what an experiment produced.
type Outcome struct {
	Versioned
	ExperimentID int64  `json:"experimentId"`
	Result       string `json:"result"`
	Notes        string `json:"notes"`
}

// ReflectionContext captures the state of mind before the experiment.
type ReflectionContext struct {
	EmotionBefore    int `json:"emotionBefore" validate:"min=1,max=5"`
	ConfidenceBefore int `json:"confidenceBefore" validate:"min=1,max=10"`
}

// ReflectionBreakdown describes what happened.
type ReflectionBreakdown struct {
	WhatHappened  string `json:"whatHappened" validate:"nonblank"`
	WhatWorked    string `json:"whatWorked" validate:"nonblank"`
	WhatDidntWork string `json:"whatDidntWork" validate:"nonblank"`
	Surprises     string `json:"surprises" validate:"nonblank"`
}

// ReflectionGrowth captures the lesson and the follow-up.
type ReflectionGrowth struct {
	LessonLearned string `json:"lessonLearned" validate:"nonblank"`
	NextAction    string `json:"nextAction" validate:"nonblank"`
}

// ReflectionResult captures the state of mind after the experiment.
type ReflectionResult struct {
	EmotionAfter    int `json:"emotionAfter" validate:"min=1,max=5"`
	ConfidenceAfter int `json:"confidenceAfter" validate:"min=1,max=10"`
}

// Reflection is an append-only retrospective on an outcome.
type Reflection struct {
	Base
	OutcomeID    int64               `json:"outcomeId"`
	Context      ReflectionContext   `json:"context"`
	Breakdown    ReflectionBreakdown `json:"breakdown"`
	Growth       ReflectionGrowth    `json:"growth"`
	Result       ReflectionResult    `json:"result"`
	Tags         []string            `json:"tags"`
	EvidenceLink string              `json:"evidenceLink"`
	Visibility   Visibility          `json:"visibility"`
}

// IdeaRef is the resolution of an experiment's weak idea reference. When the
// referenced idea no longer exists the ref is a tombstone: Missing is set and
// Idea is nil.
type IdeaRef struct {
	ID      int64 `json:"id"`
	Linked  bool  `json:"linked"`
	Missing bool  `json:"missing"`
	Idea    *Idea `json:"idea,omitempty"`
}

// Change describes a mutation recorded within a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation. Cause, when set, is the typed
// domain error the violation corresponds to.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID int64
	Cause    error
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock && v.Message != "" {
			return "transaction blocked by rules: " + v.Message
		}
	}
	return "transaction blocked by rules"
}

// Unwrap exposes the causes of blocking violations so errors.Is and errors.As
// see through the rules engine.
func (e RuleViolationError) Unwrap() []error {
	var causes []error
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock && v.Cause != nil {
			causes = append(causes, v.Cause)
		}
	}
	return causes
}
