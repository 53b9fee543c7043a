package core

import (
	"context"
	"errors"
	"learnloop/internal/infra/persistence/memory"
	"learnloop/pkg/domain"
	"testing"
)

func TestDefaultRulesEngineRegistersPolicies(t *testing.T) {
	names := NewDefaultRulesEngine().Rules()
	want := []string{"lifecycle_transition", "experiment_immutable", "outcome_reference"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func emptyView(t *testing.T) TransactionView {
	t.Helper()
	var view TransactionView
	store := memory.NewStore(nil)
	_ = store.View(context.Background(), func(v TransactionView) error {
		view = v
		return nil
	})
	return view
}

func TestLifecycleRuleBlocksSkippedStep(t *testing.T) {
	before := Idea{Status: domain.IdeaStatusDraft}
	before.ID = 1
	after := before
	after.Status = domain.IdeaStatusOutcome

	res, err := LifecycleTransitionRule().Evaluate(context.Background(), emptyView(t), []Change{{
		Entity: EntityIdea, Action: ActionUpdate, Before: before, After: after,
	}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	if !errors.Is(RuleViolationError{Result: res}, domain.ErrInvalidTransition) {
		t.Fatalf("expected violation to unwrap to ErrInvalidTransition")
	}
}

func TestLifecycleRuleAllowsSingleStepAndUnchangedStatus(t *testing.T) {
	before := Experiment{Status: domain.ExperimentStatusPlanned}
	step := before
	step.Status = domain.ExperimentStatusInProgress
	same := before
	same.Title = "renamed"

	res, err := LifecycleTransitionRule().Evaluate(context.Background(), emptyView(t), []Change{
		{Entity: EntityExperiment, Action: ActionUpdate, Before: before, After: step},
		{Entity: EntityExperiment, Action: ActionUpdate, Before: before, After: same},
		{Entity: EntityExperiment, Action: ActionDelete, Before: before},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %+v", res.Violations)
	}
}

func TestLifecycleRuleBlocksUnknownCreatedState(t *testing.T) {
	created := Idea{Status: "archived"}
	res, _ := LifecycleTransitionRule().Evaluate(context.Background(), emptyView(t), []Change{{
		Entity: EntityIdea, Action: ActionCreate, After: created,
	}})
	if !res.HasBlocking() {
		t.Fatalf("expected unknown state to block")
	}
}

func TestExperimentImmutableRule(t *testing.T) {
	completed := Experiment{Title: "done", Status: domain.ExperimentStatusCompleted}
	completed.ID = 4
	linked := completed
	verdict := domain.OutcomeSuccess
	linked.OutcomeResult = &verdict
	linked.Version = 9
	renamed := completed
	renamed.Title = "edited"

	rule := ExperimentImmutableRule()
	res, _ := rule.Evaluate(context.Background(), emptyView(t), []Change{{
		Entity: EntityExperiment, Action: ActionUpdate, Before: completed, After: linked,
	}})
	if len(res.Violations) != 0 {
		t.Fatalf("outcome result write should pass, got %+v", res.Violations)
	}

	res, _ = rule.Evaluate(context.Background(), emptyView(t), []Change{{
		Entity: EntityExperiment, Action: ActionUpdate, Before: completed, After: renamed,
	}})
	if !res.HasBlocking() || res.Violations[0].EntityID != 4 {
		t.Fatalf("expected blocking violation for experiment 4, got %+v", res.Violations)
	}
	if !errors.Is(RuleViolationError{Result: res}, domain.ErrImmutableEntity) {
		t.Fatalf("expected violation to unwrap to ErrImmutableEntity")
	}
}

// stubView serves fixed records to rules under test.
type stubView struct {
	experiments []Experiment
	outcomes    []Outcome
	reflections []Reflection
}

func (v stubView) ListIdeas() []Idea             { return nil }
func (v stubView) ListExperiments() []Experiment { return v.experiments }
func (v stubView) ListOutcomes() []Outcome       { return v.outcomes }
func (v stubView) ListReflections() []Reflection { return v.reflections }
func (v stubView) FindIdea(int64) (Idea, bool)   { return Idea{}, false }
func (v stubView) FindReflection(int64) (Reflection, bool) {
	return Reflection{}, false
}

func (v stubView) FindExperiment(id int64) (Experiment, bool) {
	for _, e := range v.experiments {
		if e.ID == id {
			return e, true
		}
	}
	return Experiment{}, false
}

func (v stubView) FindOutcome(id int64) (Outcome, bool) {
	for _, o := range v.outcomes {
		if o.ID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

func orphanedView() stubView {
	exp := Experiment{Title: "e"}
	exp.ID = 8
	kept := Outcome{ExperimentID: 8}
	kept.ID = 3
	orphan := Outcome{ExperimentID: 2}
	orphan.ID = 4
	reflection := Reflection{OutcomeID: 99}
	reflection.ID = 5
	return stubView{
		experiments: []Experiment{exp},
		outcomes:    []Outcome{kept, orphan},
		reflections: []Reflection{reflection},
	}
}

func TestOutcomeReferenceRuleDetectsOrphans(t *testing.T) {
	res, err := OutcomeReferenceRule().Evaluate(context.Background(), orphanedView(), []Change{{Entity: EntityExperiment, Action: ActionDelete}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected two violations, got %+v", res.Violations)
	}
	if res.Violations[0].Entity != EntityOutcome || res.Violations[0].EntityID != 4 {
		t.Fatalf("expected outcome 4 first, got %+v", res.Violations[0])
	}
	if res.Violations[1].Entity != EntityReflection || res.Violations[1].EntityID != 5 {
		t.Fatalf("expected reflection 5 second, got %+v", res.Violations[1])
	}
	var rerr *domain.ReferentialConflictError
	if !errors.As(RuleViolationError{Result: res}, &rerr) || rerr.Entity != EntityExperiment || rerr.ID != 2 {
		t.Fatalf("expected referential conflict on experiment 2, got %v", rerr)
	}
}

func TestOutcomeReferenceRuleIgnoresIdeaChanges(t *testing.T) {
	res, _ := OutcomeReferenceRule().Evaluate(context.Background(), orphanedView(), []Change{{Entity: EntityIdea, Action: ActionCreate}})
	if len(res.Violations) != 0 {
		t.Fatalf("idea-only commits should not be checked, got %+v", res.Violations)
	}
}
