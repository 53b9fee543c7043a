package core

import (
	"context"
	"fmt"
	"learnloop/pkg/domain"
)

// OutcomeReferenceRule blocks commits that leave an outcome pointing at a
// missing experiment or a reflection pointing at a missing outcome.
func OutcomeReferenceRule() domain.Rule {
	return outcomeReferenceRule{}
}

type outcomeReferenceRule struct{}

func (outcomeReferenceRule) Name() string { return "outcome_reference" }

func (outcomeReferenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	touched := false
	for _, change := range changes {
		switch change.Entity {
		case domain.EntityExperiment, domain.EntityOutcome, domain.EntityReflection:
			touched = true
		}
	}
	if !touched {
		return res, nil
	}

	for _, outcome := range view.ListOutcomes() {
		if _, ok := view.FindExperiment(outcome.ExperimentID); ok {
			continue
		}
		res.Violations = append(res.Violations, referenceViolation(
			domain.EntityExperiment, outcome.ExperimentID, domain.EntityOutcome, outcome.ID))
	}
	for _, reflection := range view.ListReflections() {
		if _, ok := view.FindOutcome(reflection.OutcomeID); ok {
			continue
		}
		res.Violations = append(res.Violations, referenceViolation(
			domain.EntityOutcome, reflection.OutcomeID, domain.EntityReflection, reflection.ID))
	}
	return res, nil
}

func referenceViolation(entity domain.EntityType, id int64, referrer domain.EntityType, referrerID int64) domain.Violation {
	return domain.Violation{
		Rule:     "outcome_reference",
		Severity: domain.SeverityBlock,
		Message:  fmt.Sprintf("%s %d references missing %s %d", referrer, referrerID, entity, id),
		Entity:   referrer,
		EntityID: referrerID,
		Cause:    &domain.ReferentialConflictError{Entity: entity, ID: id, Referrer: referrer, ReferrerID: referrerID},
	}
}
