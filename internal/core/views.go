package core

import (
	"context"
	"learnloop/pkg/domain"
)

// ExperimentDetail is an experiment with its derived progress and the
// resolution of its linked idea.
type ExperimentDetail struct {
	Experiment Experiment `json:"experiment"`
	Progress   int        `json:"progress"`
	Idea       IdeaRef    `json:"idea"`
}

// ListIdeas returns every idea in id order.
func (s *Service) ListIdeas(ctx context.Context) ([]Idea, error) {
	return viewList(ctx, s.store, TransactionView.ListIdeas, nil)
}

// PublishedIdeas returns ideas that have left the draft stage, in id order.
func (s *Service) PublishedIdeas(ctx context.Context) ([]Idea, error) {
	return viewList(ctx, s.store, TransactionView.ListIdeas, func(i Idea) bool {
		return i.Status != domain.IdeaStatusDraft
	})
}

// DraftIdeas returns ideas still in draft, in id order.
func (s *Service) DraftIdeas(ctx context.Context) ([]Idea, error) {
	return viewList(ctx, s.store, TransactionView.ListIdeas, func(i Idea) bool {
		return i.Status == domain.IdeaStatusDraft
	})
}

// GetIdea returns the idea or a NotFoundError.
func (s *Service) GetIdea(ctx context.Context, id int64) (Idea, error) {
	return viewGet(ctx, s.store, EntityIdea, id, TransactionView.FindIdea)
}

// ListExperiments returns every experiment in id order.
func (s *Service) ListExperiments(ctx context.Context) ([]Experiment, error) {
	return viewList(ctx, s.store, TransactionView.ListExperiments, nil)
}

// GetExperiment returns the experiment or a NotFoundError.
func (s *Service) GetExperiment(ctx context.Context, id int64) (Experiment, error) {
	return viewGet(ctx, s.store, EntityExperiment, id, TransactionView.FindExperiment)
}

// GetExperimentDetail returns the experiment with its progress and linked idea
// read from one consistent view.
func (s *Service) GetExperimentDetail(ctx context.Context, id int64) (ExperimentDetail, error) {
	var detail ExperimentDetail
	err := s.store.View(ctx, func(view TransactionView) error {
		exp, ok := view.FindExperiment(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityExperiment, ID: id}
		}
		detail = ExperimentDetail{
			Experiment: exp,
			Progress:   exp.Progress(),
			Idea:       resolveIdea(view, exp.LinkedIdeaID),
		}
		return nil
	})
	return detail, err
}

// ResolveLinkedIdea resolves the experiment's weak idea reference. A deleted
// idea yields a tombstone ref rather than an error.
func (s *Service) ResolveLinkedIdea(ctx context.Context, experimentID int64) (IdeaRef, error) {
	detail, err := s.GetExperimentDetail(ctx, experimentID)
	if err != nil {
		return IdeaRef{}, err
	}
	return detail.Idea, nil
}

func resolveIdea(view TransactionView, linked *int64) IdeaRef {
	if linked == nil {
		return IdeaRef{}
	}
	ref := IdeaRef{ID: *linked, Linked: true}
	idea, ok := view.FindIdea(*linked)
	if !ok {
		ref.Missing = true
		return ref
	}
	ref.Idea = &idea
	return ref
}

// ListOutcomes returns every outcome in id order.
func (s *Service) ListOutcomes(ctx context.Context) ([]Outcome, error) {
	return viewList(ctx, s.store, TransactionView.ListOutcomes, nil)
}

// OutcomesForExperiment returns the outcomes recorded for an experiment. An
// unknown experiment yields a NotFoundError.
func (s *Service) OutcomesForExperiment(ctx context.Context, experimentID int64) ([]Outcome, error) {
	var out []Outcome
	err := s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindExperiment(experimentID); !ok {
			return domain.NotFoundError{Entity: EntityExperiment, ID: experimentID}
		}
		out = filter(view.ListOutcomes(), func(o Outcome) bool { return o.ExperimentID == experimentID })
		return nil
	})
	return out, err
}

// GetOutcome returns the outcome or a NotFoundError.
func (s *Service) GetOutcome(ctx context.Context, id int64) (Outcome, error) {
	return viewGet(ctx, s.store, EntityOutcome, id, TransactionView.FindOutcome)
}

// ListReflections returns every reflection in id order.
func (s *Service) ListReflections(ctx context.Context) ([]Reflection, error) {
	return viewList(ctx, s.store, TransactionView.ListReflections, nil)
}

// ReflectionsForOutcome returns the reflections written about an outcome.
func (s *Service) ReflectionsForOutcome(ctx context.Context, outcomeID int64) ([]Reflection, error) {
	var out []Reflection
	err := s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindOutcome(outcomeID); !ok {
			return domain.NotFoundError{Entity: EntityOutcome, ID: outcomeID}
		}
		out = filter(view.ListReflections(), func(r Reflection) bool { return r.OutcomeID == outcomeID })
		return nil
	})
	return out, err
}

// GetReflection returns the reflection or a NotFoundError.
func (s *Service) GetReflection(ctx context.Context, id int64) (Reflection, error) {
	return viewGet(ctx, s.store, EntityReflection, id, TransactionView.FindReflection)
}

func viewList[T any](ctx context.Context, store PersistentStore, list func(TransactionView) []T, keep func(T) bool) ([]T, error) {
	var out []T
	err := store.View(ctx, func(view TransactionView) error {
		out = list(view)
		if keep != nil {
			out = filter(out, keep)
		}
		return nil
	})
	if out == nil {
		out = []T{}
	}
	return out, err
}

func viewGet[T any](ctx context.Context, store PersistentStore, kind EntityType, id int64, find func(TransactionView, int64) (T, bool)) (T, error) {
	var (
		out T
		ok  bool
	)
	err := store.View(ctx, func(view TransactionView) error {
		out, ok = find(view, id)
		return nil
	})
	if err != nil {
		return out, err
	}
	if !ok {
		return out, domain.NotFoundError{Entity: kind, ID: id}
	}
	return out, nil
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
