package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Update methods are guarded by the
// caller's expected version.
type Transaction interface {
	Snapshot() TransactionView
	CreateIdea(Idea) (Idea, error)
	UpdateIdea(id, expectedVersion int64, mutator func(*Idea) error) (Idea, error)
	DeleteIdea(id int64) error
	CreateExperiment(Experiment) (Experiment, error)
	UpdateExperiment(id, expectedVersion int64, mutator func(*Experiment) error) (Experiment, error)
	DeleteExperiment(id int64) error
	CreateOutcome(Outcome) (Outcome, error)
	UpdateOutcome(id, expectedVersion int64, mutator func(*Outcome) error) (Outcome, error)
	DeleteOutcome(id int64) error
	CreateReflection(Reflection) (Reflection, error)
	FindIdea(id int64) (Idea, bool)
	FindExperiment(id int64) (Experiment, bool)
	FindOutcome(id int64) (Outcome, bool)
}

// TransactionView provides read-only access to snapshot data for rules and views.
// List methods return records in id (insertion) order.
type TransactionView interface {
	ListIdeas() []Idea
	ListExperiments() []Experiment
	ListOutcomes() []Outcome
	ListReflections() []Reflection
	FindIdea(id int64) (Idea, bool)
	FindExperiment(id int64) (Experiment, bool)
	FindOutcome(id int64) (Outcome, bool)
	FindReflection(id int64) (Reflection, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetIdea(id int64) (Idea, bool)
	ListIdeas() []Idea
	GetExperiment(id int64) (Experiment, bool)
	ListExperiments() []Experiment
	GetOutcome(id int64) (Outcome, bool)
	ListOutcomes() []Outcome
	GetReflection(id int64) (Reflection, bool)
	ListReflections() []Reflection
}
