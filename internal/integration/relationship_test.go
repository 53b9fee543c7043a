package integration

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"learnloop/internal/core"
	"learnloop/pkg/domain"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrationLoopRelationships(t *testing.T) {
	ctx := context.Background()

	for _, variant := range storeVariants() {
		t.Run(variant.name, func(t *testing.T) {
			svc := core.NewService(variant.open(t))

			idea, _, err := svc.CreateDraft(ctx, "Journal nightly", "Five lines before bed")
			require.NoError(t, err)
			idea, _, err = svc.PublishIdea(ctx, idea.ID, idea.Version)
			require.NoError(t, err)
			assert.Equal(t, domain.IdeaStatusProposed, idea.Status)

			linked := idea.ID
			exp, _, err := svc.CreateExperiment(ctx, core.ExperimentInput{
				Title:          "Nightly journal",
				Description:    "Thirty nights",
				Hypothesis:     "Sleep onset gets faster",
				SuccessMetric:  "Asleep within 20 minutes",
				Falsifiability: "No change in onset",
				LinkedIdeaID:   &linked,
			})
			require.NoError(t, err)
			idea, _, err = svc.AdvanceIdeaStatus(ctx, idea.ID, domain.IdeaStatusExperiment, idea.Version)
			require.NoError(t, err)

			exp, _, err = svc.AdvanceExperimentStatus(ctx, exp.ID, domain.ExperimentStatusInProgress, exp.Version)
			require.NoError(t, err)
			exp, _, err = svc.AdvanceExperimentStatus(ctx, exp.ID, domain.ExperimentStatusCompleted, exp.Version)
			require.NoError(t, err)

			_, _, err = svc.UpdateExperiment(ctx, exp.ID, core.ExperimentPatch{Title: strPtr("renamed")}, exp.Version)
			assert.True(t, errors.Is(err, domain.ErrImmutableEntity), "completed experiment edit: %v", err)

			outcome, _, err := svc.CreateOutcome(ctx, exp.ID, "Failed", "no measurable change")
			require.NoError(t, err)
			exp, err = svc.GetExperiment(ctx, exp.ID)
			require.NoError(t, err)
			require.NotNil(t, exp.OutcomeResult)
			assert.Equal(t, domain.OutcomeResult("Failed"), *exp.OutcomeResult)

			_, err = svc.DeleteExperiment(ctx, exp.ID)
			assert.True(t, errors.Is(err, domain.ErrReferentialConflict), "delete referenced experiment: %v", err)

			reflection, _, err := svc.CreateReflection(ctx, core.ReflectionInput{
				OutcomeID: outcome.ID,
				Context:   domain.ReflectionContext{EmotionBefore: 3, ConfidenceBefore: 5},
				Result:    domain.ReflectionResult{EmotionAfter: 2, ConfidenceAfter: 5},
			})
			require.NoError(t, err)
			assert.Equal(t, domain.VisibilityPrivate, reflection.Visibility)

			_, err = svc.DeleteOutcome(ctx, outcome.ID)
			assert.True(t, errors.Is(err, domain.ErrReferentialConflict), "delete reflected outcome: %v", err)

			_, _, err = svc.AdvanceIdeaStatus(ctx, idea.ID, domain.IdeaStatusReflection, idea.Version)
			assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "skipped idea step: %v", err)
			_, _, err = svc.AdvanceIdeaStatus(ctx, idea.ID, domain.IdeaStatusOutcome, idea.Version-1)
			assert.True(t, errors.Is(err, domain.ErrConcurrencyConflict), "stale version: %v", err)

			deleted, err := svc.DeleteIdea(ctx, idea.ID)
			require.NoError(t, err)
			assert.True(t, deleted)
			ref, err := svc.ResolveLinkedIdea(ctx, exp.ID)
			require.NoError(t, err)
			assert.True(t, ref.Linked)
			assert.True(t, ref.Missing)
		})
	}
}

func TestIntegrationSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")
	open := func() (*core.Service, io.Closer) {
		store, err := core.OpenPersistentStore(core.StorageOptions{Driver: core.StorageSQLite, SQLitePath: path}, core.NewDefaultRulesEngine())
		require.NoError(t, err)
		return core.NewService(store), store.(io.Closer)
	}

	svc, closer := open()
	idea, _, err := svc.CreateDraft(ctx, "Cold showers", "Thirty seconds at the end")
	require.NoError(t, err)
	idea, _, err = svc.UpdateDraft(ctx, idea.ID, "Cold showers", "Sixty seconds at the end", idea.Version)
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	svc, closer = open()
	defer func() { _ = closer.Close() }()
	got, err := svc.GetIdea(ctx, idea.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, "Sixty seconds at the end", got.Description)

	next, _, err := svc.CreateDraft(ctx, "Stretch", "Morning stretch")
	require.NoError(t, err)
	assert.Greater(t, next.ID, idea.ID)
}

func TestIntegrationSQLiteWriteFailureIsNotCommitted(t *testing.T) {
	ctx := context.Background()
	store, err := core.OpenPersistentStore(core.StorageOptions{Driver: core.StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "broken.db")}, core.NewDefaultRulesEngine())
	require.NoError(t, err)
	svc := core.NewService(store)

	idea, _, err := svc.CreateDraft(ctx, "Read before bed", "Twenty pages")
	require.NoError(t, err)
	require.NoError(t, store.(interface{ DB() *sql.DB }).DB().Close())

	published, _, err := svc.PublishIdea(ctx, idea.ID, 1)
	require.Error(t, err)
	assert.Equal(t, core.Idea{}, published)

	got, err := svc.GetIdea(ctx, idea.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IdeaStatusDraft, got.Status)
	assert.Equal(t, int64(1), got.Version)

	_, _, err = svc.PublishIdea(ctx, idea.ID, 1)
	assert.False(t, errors.Is(err, domain.ErrConcurrencyConflict), "retry at version 1: %v", err)
}

func strPtr(v string) *string { return &v }
