package core

import (
	"context"
	"fmt"
	"learnloop/pkg/domain"
)

// ExperimentImmutableRule blocks every change to a completed experiment other
// than its outcome result.
func ExperimentImmutableRule() domain.Rule {
	return experimentImmutableRule{}
}

type experimentImmutableRule struct{}

func (experimentImmutableRule) Name() string { return "experiment_immutable" }

func (experimentImmutableRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityExperiment || change.Action != domain.ActionUpdate {
			continue
		}
		before, ok := change.Before.(domain.Experiment)
		if !ok || before.Status != domain.ExperimentStatusCompleted {
			continue
		}
		after, ok := change.After.(domain.Experiment)
		if !ok {
			continue
		}
		if sameExceptOutcome(before, after) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "experiment_immutable",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("experiment %d is completed and only accepts an outcome result", before.ID),
			Entity:   domain.EntityExperiment,
			EntityID: before.ID,
			Cause:    &domain.ImmutableError{Entity: domain.EntityExperiment, ID: before.ID},
		})
	}
	return res, nil
}

// sameExceptOutcome compares the user-editable fields of two experiments.
func sameExceptOutcome(a, b domain.Experiment) bool {
	return a.Title == b.Title &&
		a.Description == b.Description &&
		a.Hypothesis == b.Hypothesis &&
		a.SuccessMetric == b.SuccessMetric &&
		a.Falsifiability == b.Falsifiability &&
		a.Status == b.Status &&
		equalIDPtr(a.LinkedIdeaID, b.LinkedIdeaID)
}

func equalIDPtr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
