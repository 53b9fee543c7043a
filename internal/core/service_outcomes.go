package core

import (
	"context"
	"errors"
	"learnloop/pkg/domain"
	"strings"
)

// CreateOutcome records an outcome for an existing experiment. An enumerated
// result (Success or Failed) is linked onto the experiment in the same
// transaction, including completed experiments.
func (s *Service) CreateOutcome(ctx context.Context, experimentID int64, result, notes string) (Outcome, Result, error) {
	var created Outcome
	ref := &auditRef{}
	res, err := s.run(ctx, opCreateOutcome, ref, func(tx Transaction) error {
		in := OutcomeInput{ExperimentID: experimentID, Result: strings.TrimSpace(result), Notes: strings.TrimSpace(notes)}
		if err := domain.Validate(in); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateOutcome(Outcome{ExperimentID: in.ExperimentID, Result: in.Result, Notes: in.Notes})
		if err != nil {
			return err
		}
		ref.set(created.ID, created.Version)
		return linkOutcomeResult(tx, created)
	})
	if err != nil {
		return Outcome{}, res, err
	}
	return created, res, nil
}

// UpdateOutcomeResult replaces the result of an outcome at expectedVersion
// and relinks an enumerated result onto its experiment.
func (s *Service) UpdateOutcomeResult(ctx context.Context, id int64, result string, expectedVersion int64) (Outcome, Result, error) {
	var updated Outcome
	ref := &auditRef{id: id}
	res, err := s.run(ctx, opUpdateOutcomeResult, ref, func(tx Transaction) error {
		trimmed := strings.TrimSpace(result)
		if trimmed == "" {
			return &domain.ValidationError{Field: "result", Reason: "must not be blank"}
		}
		var err error
		updated, err = tx.UpdateOutcome(id, expectedVersion, func(o *Outcome) error {
			o.Result = trimmed
			return nil
		})
		if err != nil {
			return err
		}
		ref.set(id, updated.Version)
		return linkOutcomeResult(tx, updated)
	})
	if err != nil {
		return Outcome{}, res, err
	}
	return updated, res, nil
}

// linkOutcomeResult writes an enumerated outcome result onto the referenced
// experiment. This is the one write a completed experiment accepts, and it
// goes through the version guard using the version just read.
func linkOutcomeResult(tx Transaction, outcome Outcome) error {
	verdict, ok := domain.ParseOutcomeResult(outcome.Result)
	if !ok {
		return nil
	}
	exp, found := tx.FindExperiment(outcome.ExperimentID)
	if !found {
		return domain.NotFoundError{Entity: EntityExperiment, ID: outcome.ExperimentID}
	}
	if exp.OutcomeResult != nil && *exp.OutcomeResult == verdict {
		return nil
	}
	_, err := tx.UpdateExperiment(exp.ID, exp.Version, func(e *Experiment) error {
		e.OutcomeResult = &verdict
		return nil
	})
	return err
}

// DeleteOutcome removes an outcome and reports whether it existed. The
// experiment it references is never touched.
func (s *Service) DeleteOutcome(ctx context.Context, id int64) (bool, error) {
	deleted := false
	_, err := s.run(ctx, opDeleteOutcome, &auditRef{id: id}, func(tx Transaction) error {
		err := tx.DeleteOutcome(id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		deleted = err == nil
		return err
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// CreateReflection validates and appends a reflection on an existing outcome.
// Validation names the first failing field and runs before any write.
func (s *Service) CreateReflection(ctx context.Context, input ReflectionInput) (Reflection, Result, error) {
	var created Reflection
	ref := &auditRef{}
	res, err := s.run(ctx, opCreateReflection, ref, func(tx Transaction) error {
		in := input.Normalize()
		if err := domain.Validate(in); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateReflection(in.Reflection())
		ref.set(created.ID, 0)
		return err
	})
	if err != nil {
		return Reflection{}, res, err
	}
	return created, res, nil
}
