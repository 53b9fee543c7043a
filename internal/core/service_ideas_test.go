package core

import (
	"context"
	"errors"
	"learnloop/pkg/domain"
	"testing"
)

func TestCreateDraftThenPublish(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	idea, _, err := svc.CreateDraft(ctx, "T", "D")
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if idea.Status != domain.IdeaStatusDraft || idea.Version != 1 {
		t.Fatalf("expected draft at version 1, got %s v%d", idea.Status, idea.Version)
	}
	if !idea.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected createdAt from clock, got %v", idea.CreatedAt)
	}

	published, _, err := svc.PublishIdea(ctx, idea.ID, 1)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published.Status != domain.IdeaStatusProposed || published.Version != 2 {
		t.Fatalf("expected proposed at version 2, got %s v%d", published.Status, published.Version)
	}
}

func TestCreateIdeaStartsProposed(t *testing.T) {
	svc := newTestService(t)
	idea, _, err := svc.CreateIdea(context.Background(), "  Walk daily ", "after lunch")
	if err != nil {
		t.Fatalf("create idea: %v", err)
	}
	if idea.Status != domain.IdeaStatusProposed {
		t.Fatalf("expected proposed, got %s", idea.Status)
	}
	if idea.Title != "Walk daily" {
		t.Fatalf("expected trimmed title, got %q", idea.Title)
	}
}

func TestCreateDraftRejectsBlankTitle(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.CreateDraft(context.Background(), "   ", "D")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "title" {
		t.Fatalf("expected title validation error, got %v", err)
	}
	ideas, _ := svc.ListIdeas(context.Background())
	if len(ideas) != 0 {
		t.Fatalf("expected no ideas stored, got %d", len(ideas))
	}
}

func TestIdeaLifecycleFollowsTable(t *testing.T) {
	steps := []domain.IdeaStatus{
		domain.IdeaStatusProposed,
		domain.IdeaStatusExperiment,
		domain.IdeaStatusOutcome,
		domain.IdeaStatusReflection,
	}
	svc := newTestService(t)
	ctx := context.Background()
	idea := mustDraft(t, svc, "loop")
	for i, next := range steps {
		var err error
		idea, _, err = svc.AdvanceIdeaStatus(ctx, idea.ID, next, idea.Version)
		if err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
		if idea.Status != next || idea.Version != int64(i+2) {
			t.Fatalf("expected %s v%d, got %s v%d", next, i+2, idea.Status, idea.Version)
		}
	}
}

func TestIdeaInvalidTransitionsLeaveStateUnchanged(t *testing.T) {
	cases := []struct {
		name      string
		advanceTo []domain.IdeaStatus
		requested domain.IdeaStatus
	}{
		{"skip from draft", nil, domain.IdeaStatusExperiment},
		{"self transition", nil, domain.IdeaStatusDraft},
		{"backward", []domain.IdeaStatus{domain.IdeaStatusProposed}, domain.IdeaStatusDraft},
		{"skip from proposed", []domain.IdeaStatus{domain.IdeaStatusProposed}, domain.IdeaStatusReflection},
		{"unknown status", nil, domain.IdeaStatus("archived")},
		{"terminal reflection", []domain.IdeaStatus{
			domain.IdeaStatusProposed,
			domain.IdeaStatusExperiment,
			domain.IdeaStatusOutcome,
			domain.IdeaStatusReflection,
		}, domain.IdeaStatusDraft},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t)
			ctx := context.Background()
			idea := mustDraft(t, svc, "x")
			for _, step := range tc.advanceTo {
				var err error
				if idea, _, err = svc.AdvanceIdeaStatus(ctx, idea.ID, step, idea.Version); err != nil {
					t.Fatalf("setup advance to %s: %v", step, err)
				}
			}
			_, _, err := svc.AdvanceIdeaStatus(ctx, idea.ID, tc.requested, idea.Version)
			if !errors.Is(err, domain.ErrInvalidTransition) {
				t.Fatalf("expected invalid transition, got %v", err)
			}
			var terr *domain.TransitionError
			if !errors.As(err, &terr) || terr.From != string(idea.Status) || terr.To != string(tc.requested) {
				t.Fatalf("expected transition error from %s to %s, got %v", idea.Status, tc.requested, err)
			}
			stored, err := svc.GetIdea(ctx, idea.ID)
			if err != nil {
				t.Fatalf("get idea: %v", err)
			}
			if stored.Status != idea.Status || stored.Version != idea.Version {
				t.Fatalf("state changed: %s v%d -> %s v%d", idea.Status, idea.Version, stored.Status, stored.Version)
			}
		})
	}
}

func TestTerminalReflectionRejectsEveryStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	idea, _, err := svc.CreateIdea(ctx, "terminal", "loop closes")
	if err != nil {
		t.Fatalf("create idea: %v", err)
	}
	for _, next := range []domain.IdeaStatus{domain.IdeaStatusExperiment, domain.IdeaStatusOutcome, domain.IdeaStatusReflection} {
		if idea, _, err = svc.AdvanceIdeaStatus(ctx, idea.ID, next, idea.Version); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}
	machine, _ := domain.MachineFor(domain.EntityIdea)
	for _, status := range machine.States() {
		_, _, err := svc.AdvanceIdeaStatus(ctx, idea.ID, domain.IdeaStatus(status), idea.Version)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected %s to be rejected from reflection, got %v", status, err)
		}
	}
}

func TestUpdateDraft(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	idea := mustDraft(t, svc, "first")

	updated, _, err := svc.UpdateDraft(ctx, idea.ID, "second", "changed", 1)
	if err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if updated.Title != "second" || updated.Description != "changed" || updated.Version != 2 {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if !updated.CreatedAt.Equal(idea.CreatedAt) || updated.ID != idea.ID {
		t.Fatalf("identity changed: %+v", updated)
	}

	if _, _, err := svc.UpdateDraft(ctx, idea.ID, "third", "stale", 1); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}
	if _, _, err := svc.UpdateDraft(ctx, 999, "x", "y", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateDraftRejectsPublishedIdea(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	idea := mustDraft(t, svc, "draft")
	published, _, err := svc.PublishIdea(ctx, idea.ID, idea.Version)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	_, _, err = svc.UpdateDraft(ctx, idea.ID, "new", "text", published.Version)
	if !errors.Is(err, domain.ErrNotADraft) {
		t.Fatalf("expected not a draft, got %v", err)
	}
	stored, _ := svc.GetIdea(ctx, idea.ID)
	if stored.Title != "draft" || stored.Version != published.Version {
		t.Fatalf("published idea changed: %+v", stored)
	}
}

func TestPublishRejectsNonDraft(t *testing.T) {
	svc := newTestService(t)
	idea, _, err := svc.CreateIdea(context.Background(), "live", "already proposed")
	if err != nil {
		t.Fatalf("create idea: %v", err)
	}
	if _, _, err := svc.PublishIdea(context.Background(), idea.ID, idea.Version); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestPublishStaleVersion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	idea := mustDraft(t, svc, "stale")
	if _, _, err := svc.UpdateDraft(ctx, idea.ID, "stale", "edited", 1); err != nil {
		t.Fatalf("update draft: %v", err)
	}
	_, _, err := svc.PublishIdea(ctx, idea.ID, 1)
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) || conflict.Expected != 1 || conflict.Current != 2 {
		t.Fatalf("expected conflict expected=1 current=2, got %v", err)
	}
	stored, _ := svc.GetIdea(ctx, idea.ID)
	if stored.Status != domain.IdeaStatusDraft {
		t.Fatalf("stale publish changed status to %s", stored.Status)
	}
}

func TestDeleteIdea(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	idea := mustDraft(t, svc, "gone")

	deleted, err := svc.DeleteIdea(ctx, idea.ID)
	if err != nil || !deleted {
		t.Fatalf("expected delete to succeed, got %v %v", deleted, err)
	}
	deleted, err = svc.DeleteIdea(ctx, idea.ID)
	if err != nil || deleted {
		t.Fatalf("expected second delete to report false, got %v %v", deleted, err)
	}
	if _, err := svc.GetIdea(ctx, idea.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
