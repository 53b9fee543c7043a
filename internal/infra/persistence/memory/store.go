// Package memory provides an in-memory implementation of the learnloop
// persistence store used for tests, ephemeral environments and as the
// working set of the durable backends.
package memory

import (
	"context"
	"fmt"
	"learnloop/pkg/domain"
	"sort"
	"strings"
	"sync"
	"time"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Idea aliases domain.Idea for in-memory persistence operations.
	Idea = domain.Idea
	// Experiment aliases domain.Experiment.
	Experiment = domain.Experiment
	// Outcome aliases domain.Outcome.
	Outcome = domain.Outcome
	// Reflection aliases domain.Reflection.
	Reflection = domain.Reflection
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	ideas       map[int64]Idea
	experiments map[int64]Experiment
	outcomes    map[int64]Outcome
	reflections map[int64]Reflection
	sequences   map[domain.EntityType]int64
}

// Snapshot captures a point-in-time clone of the store state. Sequences holds
// the last id handed out per entity kind so ids are never reused.
type Snapshot struct {
	Ideas       map[int64]Idea              `json:"ideas"`
	Experiments map[int64]Experiment        `json:"experiments"`
	Outcomes    map[int64]Outcome           `json:"outcomes"`
	Reflections map[int64]Reflection        `json:"reflections"`
	Sequences   map[domain.EntityType]int64 `json:"sequences"`
}

func newMemoryState() memoryState {
	return memoryState{
		ideas:       make(map[int64]Idea),
		experiments: make(map[int64]Experiment),
		outcomes:    make(map[int64]Outcome),
		reflections: make(map[int64]Reflection),
		sequences:   make(map[domain.EntityType]int64),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Ideas:       cloned.ideas,
		Experiments: cloned.experiments,
		Outcomes:    cloned.outcomes,
		Reflections: cloned.reflections,
		Sequences:   cloned.sequences,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	return memoryState{
		ideas:       s.Ideas,
		experiments: s.Experiments,
		outcomes:    s.Outcomes,
		reflections: s.Reflections,
		sequences:   s.Sequences,
	}
}

// migrateSnapshot fills missing buckets, repairs records written by older
// builds and raises every sequence to at least the highest stored id.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	// Work on a copy with every bucket allocated; the caller keeps its maps.
	snapshot = snapshotFromMemoryState(memoryStateFromSnapshot(snapshot))

	for id, idea := range snapshot.Ideas {
		idea.ID = id
		if idea.Version < 1 {
			idea.Version = 1
		}
		if idea.Status == "" {
			idea.Status = domain.IdeaStatusProposed
		}
		snapshot.Ideas[id] = idea
		raiseSequence(snapshot.Sequences, domain.EntityIdea, id)
	}
	for id, exp := range snapshot.Experiments {
		exp.ID = id
		if exp.Version < 1 {
			exp.Version = 1
		}
		if exp.Status == "" {
			exp.Status = domain.ExperimentStatusPlanned
		}
		snapshot.Experiments[id] = exp
		raiseSequence(snapshot.Sequences, domain.EntityExperiment, id)
	}
	for id, outcome := range snapshot.Outcomes {
		if _, ok := snapshot.Experiments[outcome.ExperimentID]; !ok {
			delete(snapshot.Outcomes, id)
			continue
		}
		outcome.ID = id
		if outcome.Version < 1 {
			outcome.Version = 1
		}
		snapshot.Outcomes[id] = outcome
		raiseSequence(snapshot.Sequences, domain.EntityOutcome, id)
	}
	for id, reflection := range snapshot.Reflections {
		if _, ok := snapshot.Outcomes[reflection.OutcomeID]; !ok {
			delete(snapshot.Reflections, id)
			continue
		}
		reflection.ID = id
		if reflection.Tags == nil {
			reflection.Tags = []string{}
		}
		if reflection.Visibility == "" {
			reflection.Visibility = domain.VisibilityPrivate
		}
		snapshot.Reflections[id] = reflection
		raiseSequence(snapshot.Sequences, domain.EntityReflection, id)
	}
	return snapshot
}

func raiseSequence(seq map[domain.EntityType]int64, kind domain.EntityType, id int64) {
	if id > seq[kind] {
		seq[kind] = id
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.ideas {
		cloned.ideas[k] = cloneIdea(v)
	}
	for k, v := range s.experiments {
		cloned.experiments[k] = cloneExperiment(v)
	}
	for k, v := range s.outcomes {
		cloned.outcomes[k] = cloneOutcome(v)
	}
	for k, v := range s.reflections {
		cloned.reflections[k] = cloneReflection(v)
	}
	for k, v := range s.sequences {
		cloned.sequences[k] = v
	}
	return cloned
}

func cloneIdea(i Idea) Idea          { return i }
func cloneOutcome(o Outcome) Outcome { return o }

func cloneExperiment(e Experiment) Experiment {
	cp := e
	if e.LinkedIdeaID != nil {
		id := *e.LinkedIdeaID
		cp.LinkedIdeaID = &id
	}
	if e.OutcomeResult != nil {
		r := *e.OutcomeResult
		cp.OutcomeResult = &r
	}
	return cp
}

func cloneReflection(r Reflection) Reflection {
	cp := r
	cp.Tags = append([]string{}, r.Tags...)
	return cp
}

// sortedValues returns the bucket values ordered by id, which is insertion order.
func sortedValues[T any](bucket map[int64]T, clone func(T) T) []T {
	ids := make([]int64, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(bucket[id]))
	}
	return out
}

func find[T any](bucket map[int64]T, id int64, clone func(T) T) (T, bool) {
	v, ok := bucket[id]
	if !ok {
		var zero T
		return zero, false
	}
	return clone(v), true
}

// CommitHook receives the candidate state of a transaction after the rules
// accept it. An error aborts the commit and leaves the committed state as it
// was.
type CommitHook func(ctx context.Context, candidate Snapshot) error

// Store provides an in-memory transactional store for the learning loop.
// writeMu serializes transactions and imports for their whole duration; mu
// guards the committed state and is held for writing only while a candidate
// state is swapped in, so views keep reading during a transaction.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   memoryState
	engine  *RulesEngine
	nowFn   func() time.Time
	hook    CommitHook
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot without
// running the commit hook. Durable stores use it to hydrate from their own
// tables.
func (s *Store) ImportState(snapshot Snapshot) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.swap(memoryStateFromSnapshot(migrateSnapshot(snapshot)))
}

// Restore replaces the store state with the migrated snapshot. The commit
// hook sees the migrated state first; if it fails nothing is replaced.
func (s *Store) Restore(ctx context.Context, snapshot Snapshot) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	next := memoryStateFromSnapshot(migrateSnapshot(snapshot))
	if err := s.runHook(ctx, next); err != nil {
		return err
	}
	s.swap(next)
	return nil
}

// SetCommitHook installs fn to run before every commit and restore. A nil fn
// removes the hook.
func (s *Store) SetCommitHook(fn CommitHook) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.hook = fn
}

func (s *Store) runHook(ctx context.Context, candidate memoryState) error {
	if s.hook == nil {
		return nil
	}
	return s.hook(ctx, snapshotFromMemoryState(candidate))
}

func (s *Store) swap(next memoryState) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc replaces the time provider. A nil fn restores the system clock.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		fn = func() time.Time { return time.Now().UTC() }
	}
	s.nowFn = fn
}

// transaction represents a mutation set applied to a private copy of the
// store state.
type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the state to rules and views.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListIdeas() []Idea { return sortedValues(v.state.ideas, cloneIdea) }

func (v transactionView) ListExperiments() []Experiment {
	return sortedValues(v.state.experiments, cloneExperiment)
}

func (v transactionView) ListOutcomes() []Outcome {
	return sortedValues(v.state.outcomes, cloneOutcome)
}

func (v transactionView) ListReflections() []Reflection {
	return sortedValues(v.state.reflections, cloneReflection)
}

func (v transactionView) FindIdea(id int64) (Idea, bool) {
	return find(v.state.ideas, id, cloneIdea)
}

func (v transactionView) FindExperiment(id int64) (Experiment, bool) {
	return find(v.state.experiments, id, cloneExperiment)
}

func (v transactionView) FindOutcome(id int64) (Outcome, bool) {
	return find(v.state.outcomes, id, cloneOutcome)
}

func (v transactionView) FindReflection(id int64) (Reflection, bool) {
	return find(v.state.reflections, id, cloneReflection)
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the committed state only when fn succeeds, no rule
// reports a blocking violation and the commit hook accepts it.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	s.mu.RUnlock()

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if err := s.runHook(ctx, tx.state); err != nil {
		return result, err
	}
	s.swap(tx.state)
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// nextID advances the per-kind sequence. Sequences live in the transaction
// state, so ids consumed by a rolled-back transaction are handed out again.
func (tx *transaction) nextID(kind domain.EntityType) int64 {
	tx.state.sequences[kind]++
	return tx.state.sequences[kind]
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) FindIdea(id int64) (Idea, bool) {
	return find(tx.state.ideas, id, cloneIdea)
}

func (tx *transaction) FindExperiment(id int64) (Experiment, bool) {
	return find(tx.state.experiments, id, cloneExperiment)
}

func (tx *transaction) FindOutcome(id int64) (Outcome, bool) {
	return find(tx.state.outcomes, id, cloneOutcome)
}

// CreateIdea stores a new idea with version 1. An empty status defaults to draft.
func (tx *transaction) CreateIdea(i Idea) (Idea, error) {
	if i.Status == "" {
		i.Status = domain.IdeaStatusDraft
	}
	if !domain.IsIdeaStatus(string(i.Status)) {
		return Idea{}, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown idea status %q", i.Status)}
	}
	i.ID = tx.nextID(domain.EntityIdea)
	i.Version = 1
	i.CreatedAt = tx.now
	i.UpdatedAt = tx.now
	tx.state.ideas[i.ID] = cloneIdea(i)
	tx.recordChange(Change{Entity: domain.EntityIdea, Action: domain.ActionCreate, After: cloneIdea(i)})
	return cloneIdea(i), nil
}

// UpdateIdea mutates an idea through the version guard.
func (tx *transaction) UpdateIdea(id, expectedVersion int64, mutator func(*Idea) error) (Idea, error) {
	return applyGuarded(tx, domain.EntityIdea, tx.state.ideas, id, expectedVersion, cloneIdea, mutator)
}

// DeleteIdea removes an idea. Experiments keep their weak reference to it.
func (tx *transaction) DeleteIdea(id int64) error {
	current, ok := tx.state.ideas[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityIdea, ID: id}
	}
	delete(tx.state.ideas, id)
	tx.recordChange(Change{Entity: domain.EntityIdea, Action: domain.ActionDelete, Before: cloneIdea(current)})
	return nil
}

// CreateExperiment stores a new experiment. An empty status defaults to planned.
func (tx *transaction) CreateExperiment(e Experiment) (Experiment, error) {
	if e.Status == "" {
		e.Status = domain.ExperimentStatusPlanned
	}
	if !domain.IsExperimentStatus(string(e.Status)) {
		return Experiment{}, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown experiment status %q", e.Status)}
	}
	if strings.TrimSpace(e.Title) == "" {
		return Experiment{}, &domain.ValidationError{Field: "title", Reason: "must not be blank"}
	}
	e.ID = tx.nextID(domain.EntityExperiment)
	e.Version = 1
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.experiments[e.ID] = cloneExperiment(e)
	tx.recordChange(Change{Entity: domain.EntityExperiment, Action: domain.ActionCreate, After: cloneExperiment(e)})
	return cloneExperiment(e), nil
}

// UpdateExperiment mutates an experiment through the version guard.
func (tx *transaction) UpdateExperiment(id, expectedVersion int64, mutator func(*Experiment) error) (Experiment, error) {
	return applyGuarded(tx, domain.EntityExperiment, tx.state.experiments, id, expectedVersion, cloneExperiment, mutator)
}

// DeleteExperiment removes an experiment unless an outcome still references it.
func (tx *transaction) DeleteExperiment(id int64) error {
	current, ok := tx.state.experiments[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityExperiment, ID: id}
	}
	if ref, ok := firstReferrer(tx.state.outcomes, func(o Outcome) bool { return o.ExperimentID == id }); ok {
		return &domain.ReferentialConflictError{
			Entity:     domain.EntityExperiment,
			ID:         id,
			Referrer:   domain.EntityOutcome,
			ReferrerID: ref,
		}
	}
	delete(tx.state.experiments, id)
	tx.recordChange(Change{Entity: domain.EntityExperiment, Action: domain.ActionDelete, Before: cloneExperiment(current)})
	return nil
}

// CreateOutcome stores a new outcome for an existing experiment.
func (tx *transaction) CreateOutcome(o Outcome) (Outcome, error) {
	if _, ok := tx.state.experiments[o.ExperimentID]; !ok {
		return Outcome{}, domain.NotFoundError{Entity: domain.EntityExperiment, ID: o.ExperimentID}
	}
	o.ID = tx.nextID(domain.EntityOutcome)
	o.Version = 1
	o.CreatedAt = tx.now
	o.UpdatedAt = tx.now
	tx.state.outcomes[o.ID] = cloneOutcome(o)
	tx.recordChange(Change{Entity: domain.EntityOutcome, Action: domain.ActionCreate, After: cloneOutcome(o)})
	return cloneOutcome(o), nil
}

// UpdateOutcome mutates an outcome through the version guard. The experiment
// reference is fixed at creation and survives any mutator.
func (tx *transaction) UpdateOutcome(id, expectedVersion int64, mutator func(*Outcome) error) (Outcome, error) {
	if mutator == nil {
		return applyGuarded(tx, domain.EntityOutcome, tx.state.outcomes, id, expectedVersion, cloneOutcome, nil)
	}
	return applyGuarded(tx, domain.EntityOutcome, tx.state.outcomes, id, expectedVersion, cloneOutcome, func(o *Outcome) error {
		experimentID := o.ExperimentID
		err := mutator(o)
		o.ExperimentID = experimentID
		return err
	})
}

// DeleteOutcome removes an outcome unless a reflection still references it.
// The referenced experiment is left untouched.
func (tx *transaction) DeleteOutcome(id int64) error {
	current, ok := tx.state.outcomes[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityOutcome, ID: id}
	}
	if ref, ok := firstReferrer(tx.state.reflections, func(r Reflection) bool { return r.OutcomeID == id }); ok {
		return &domain.ReferentialConflictError{
			Entity:     domain.EntityOutcome,
			ID:         id,
			Referrer:   domain.EntityReflection,
			ReferrerID: ref,
		}
	}
	delete(tx.state.outcomes, id)
	tx.recordChange(Change{Entity: domain.EntityOutcome, Action: domain.ActionDelete, Before: cloneOutcome(current)})
	return nil
}

// CreateReflection appends a reflection on an existing outcome.
func (tx *transaction) CreateReflection(r Reflection) (Reflection, error) {
	if _, ok := tx.state.outcomes[r.OutcomeID]; !ok {
		return Reflection{}, domain.NotFoundError{Entity: domain.EntityOutcome, ID: r.OutcomeID}
	}
	if r.Visibility == "" {
		r.Visibility = domain.VisibilityPrivate
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	r.ID = tx.nextID(domain.EntityReflection)
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.reflections[r.ID] = cloneReflection(r)
	tx.recordChange(Change{Entity: domain.EntityReflection, Action: domain.ActionCreate, After: cloneReflection(r)})
	return cloneReflection(r), nil
}

// firstReferrer returns the lowest id in bucket whose record matches.
func firstReferrer[T any](bucket map[int64]T, match func(T) bool) (int64, bool) {
	var (
		found  bool
		lowest int64
	)
	for id, v := range bucket {
		if match(v) && (!found || id < lowest) {
			lowest, found = id, true
		}
	}
	return lowest, found
}

// Read helpers ---------------------------------------------------------------

// GetIdea retrieves an idea by id from committed state.
func (s *Store) GetIdea(id int64) (Idea, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.state.ideas, id, cloneIdea)
}

// ListIdeas returns all ideas from committed state in id order.
func (s *Store) ListIdeas() []Idea {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.state.ideas, cloneIdea)
}

// GetExperiment retrieves an experiment by id.
func (s *Store) GetExperiment(id int64) (Experiment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.state.experiments, id, cloneExperiment)
}

// ListExperiments returns all experiments in id order.
func (s *Store) ListExperiments() []Experiment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.state.experiments, cloneExperiment)
}

// GetOutcome retrieves an outcome by id.
func (s *Store) GetOutcome(id int64) (Outcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.state.outcomes, id, cloneOutcome)
}

// ListOutcomes returns all outcomes in id order.
func (s *Store) ListOutcomes() []Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.state.outcomes, cloneOutcome)
}

// GetReflection retrieves a reflection by id.
func (s *Store) GetReflection(id int64) (Reflection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.state.reflections, id, cloneReflection)
}

// ListReflections returns all reflections in id order.
func (s *Store) ListReflections() []Reflection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.state.reflections, cloneReflection)
}
