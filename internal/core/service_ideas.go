package core

import (
	"context"
	"errors"
	"learnloop/pkg/domain"
)

// CreateDraft stores a new idea in draft status at version 1.
func (s *Service) CreateDraft(ctx context.Context, title, description string) (Idea, Result, error) {
	return s.createIdea(ctx, opCreateDraft, title, description, domain.IdeaStatusDraft)
}

// CreateIdea stores a new idea directly in proposed status, skipping the draft stage.
func (s *Service) CreateIdea(ctx context.Context, title, description string) (Idea, Result, error) {
	return s.createIdea(ctx, opCreateIdea, title, description, domain.IdeaStatusProposed)
}

func (s *Service) createIdea(ctx context.Context, op, title, description string, status IdeaStatus) (Idea, Result, error) {
	var created Idea
	ref := &auditRef{}
	res, err := s.run(ctx, op, ref, func(tx Transaction) error {
		in := IdeaInput{Title: title, Description: description}.Normalize()
		if err := domain.Validate(in); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateIdea(Idea{Title: in.Title, Description: in.Description, Status: status})
		ref.set(created.ID, created.Version)
		return err
	})
	if err != nil {
		return Idea{}, res, err
	}
	return created, res, nil
}

// UpdateDraft replaces the title and description of a draft idea. Published
// ideas are rejected with a NotADraftError.
func (s *Service) UpdateDraft(ctx context.Context, id int64, title, description string, expectedVersion int64) (Idea, Result, error) {
	var updated Idea
	ref := &auditRef{id: id}
	res, err := s.run(ctx, opUpdateDraft, ref, func(tx Transaction) error {
		in := IdeaInput{Title: title, Description: description}.Normalize()
		if err := domain.Validate(in); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateIdea(id, expectedVersion, func(i *Idea) error {
			if i.Status != domain.IdeaStatusDraft {
				return &domain.NotADraftError{ID: i.ID, Status: i.Status}
			}
			i.Title = in.Title
			i.Description = in.Description
			return nil
		})
		ref.set(id, updated.Version)
		return err
	})
	if err != nil {
		return Idea{}, res, err
	}
	return updated, res, nil
}

// PublishIdea moves a draft idea to proposed.
func (s *Service) PublishIdea(ctx context.Context, id, expectedVersion int64) (Idea, Result, error) {
	return s.transitionIdea(ctx, opPublishIdea, id, domain.IdeaStatusProposed, expectedVersion)
}

// AdvanceIdeaStatus moves an idea one step along its lifecycle.
func (s *Service) AdvanceIdeaStatus(ctx context.Context, id int64, requested IdeaStatus, expectedVersion int64) (Idea, Result, error) {
	return s.transitionIdea(ctx, opAdvanceIdeaStatus, id, requested, expectedVersion)
}

func (s *Service) transitionIdea(ctx context.Context, op string, id int64, requested IdeaStatus, expectedVersion int64) (Idea, Result, error) {
	var updated Idea
	ref := &auditRef{id: id}
	res, err := s.run(ctx, op, ref, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateIdea(id, expectedVersion, func(i *Idea) error {
			next, err := domain.TransitionIdea(i.Status, requested)
			if err != nil {
				return err
			}
			i.Status = next
			return nil
		})
		ref.set(id, updated.Version)
		return err
	})
	if err != nil {
		return Idea{}, res, err
	}
	return updated, res, nil
}

// DeleteIdea removes an idea and reports whether it existed. Experiments
// linked to it keep a dangling reference.
func (s *Service) DeleteIdea(ctx context.Context, id int64) (bool, error) {
	deleted := false
	_, err := s.run(ctx, opDeleteIdea, &auditRef{id: id}, func(tx Transaction) error {
		err := tx.DeleteIdea(id)
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
