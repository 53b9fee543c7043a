package core

import (
	"context"
	"fmt"
	"learnloop/pkg/domain"
)

// LifecycleTransitionRule blocks status changes that are not a single step of
// the entity's lifecycle machine, and creations in unknown states.
func LifecycleTransitionRule() domain.Rule {
	return lifecycleTransitionRule{}
}

type lifecycleTransitionRule struct{}

type statusExtractor func(payload any) (id int64, status string, ok bool)

var lifecycleExtractors = map[domain.EntityType]statusExtractor{
	domain.EntityIdea: func(payload any) (int64, string, bool) {
		idea, ok := payload.(domain.Idea)
		if !ok {
			return 0, "", false
		}
		return idea.ID, string(idea.Status), true
	},
	domain.EntityExperiment: func(payload any) (int64, string, bool) {
		exp, ok := payload.(domain.Experiment)
		if !ok {
			return 0, "", false
		}
		return exp.ID, string(exp.Status), true
	},
}

func (lifecycleTransitionRule) Name() string { return "lifecycle_transition" }

func (r lifecycleTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		extract, ok := lifecycleExtractors[change.Entity]
		if !ok {
			continue
		}
		machine, ok := domain.MachineFor(change.Entity)
		if !ok {
			continue
		}

		afterID, afterState, ok := extract(change.After)
		if !ok {
			continue
		}
		if !machine.Valid(afterState) {
			res.Violations = append(res.Violations, r.violation(change.Entity, afterID,
				fmt.Sprintf("%s %d is set to invalid state %s", machine.Label, afterID, afterState),
				&domain.TransitionError{Entity: change.Entity, From: "", To: afterState}))
			continue
		}

		_, beforeState, ok := extract(change.Before)
		if !ok || beforeState == afterState {
			continue
		}
		if _, err := machine.Transition(beforeState, afterState); err != nil {
			res.Violations = append(res.Violations, r.violation(change.Entity, afterID,
				fmt.Sprintf("cannot move %s %d from %s to %s", machine.Label, afterID, beforeState, afterState),
				err))
		}
	}
	return res, nil
}

func (lifecycleTransitionRule) violation(entity domain.EntityType, id int64, msg string, cause error) domain.Violation {
	return domain.Violation{
		Rule:     "lifecycle_transition",
		Severity: domain.SeverityBlock,
		Message:  msg,
		Entity:   entity,
		EntityID: id,
		Cause:    cause,
	}
}
