package core

import (
	"context"
	"errors"
	"learnloop/pkg/domain"
)

// CreateExperiment stores a new experiment at version 1. A linked idea is a
// weak reference and is not required to exist.
func (s *Service) CreateExperiment(ctx context.Context, input ExperimentInput) (Experiment, Result, error) {
	var created Experiment
	ref := &auditRef{}
	res, err := s.run(ctx, opCreateExperiment, ref, func(tx Transaction) error {
		in := input.Normalize()
		if err := domain.Validate(in); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateExperiment(in.Experiment())
		ref.set(created.ID, created.Version)
		return err
	})
	if err != nil {
		return Experiment{}, res, err
	}
	return created, res, nil
}

// UpdateExperiment applies patch to the experiment at expectedVersion.
// Completed experiments accept only an outcome result.
func (s *Service) UpdateExperiment(ctx context.Context, id int64, patch ExperimentPatch, expectedVersion int64) (Experiment, Result, error) {
	return s.patchExperiment(ctx, opUpdateExperiment, id, patch, expectedVersion)
}

// AdvanceExperimentStatus moves an experiment one step along its lifecycle.
func (s *Service) AdvanceExperimentStatus(ctx context.Context, id int64, requested ExperimentStatus, expectedVersion int64) (Experiment, Result, error) {
	return s.patchExperiment(ctx, opAdvanceExperimentStatus, id, ExperimentPatch{Status: &requested}, expectedVersion)
}

func (s *Service) patchExperiment(ctx context.Context, op string, id int64, patch ExperimentPatch, expectedVersion int64) (Experiment, Result, error) {
	var updated Experiment
	ref := &auditRef{id: id}
	res, err := s.run(ctx, op, ref, func(tx Transaction) error {
		if patch.Empty() {
			return &domain.ValidationError{Field: "patch", Reason: "must change at least one field"}
		}
		var err error
		updated, err = tx.UpdateExperiment(id, expectedVersion, patch.Apply)
		ref.set(id, updated.Version)
		return err
	})
	if err != nil {
		return Experiment{}, res, err
	}
	return updated, res, nil
}

// DeleteExperiment removes an experiment and reports whether it existed. It
// fails with a ReferentialConflictError while an outcome references it.
func (s *Service) DeleteExperiment(ctx context.Context, id int64) (bool, error) {
	deleted := false
	_, err := s.run(ctx, opDeleteExperiment, &auditRef{id: id}, func(tx Transaction) error {
		err := tx.DeleteExperiment(id)
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
