package core

import (
	"context"
	"errors"
	"learnloop/internal/infra/persistence/memory"
	"time"
)

// Snapshot is the full exportable state of a store.
type Snapshot = memory.Snapshot

// Snapshotter is implemented by stores whose state can be exported and
// replaced wholesale.
type Snapshotter interface {
	ExportState() memory.Snapshot
	Restore(ctx context.Context, snapshot memory.Snapshot) error
}

// ErrSnapshotUnsupported is returned when the store cannot export or import state.
var ErrSnapshotUnsupported = errors.New("store does not support snapshots")

// ExportSnapshot returns a copy of the committed state.
func (s *Service) ExportSnapshot(_ context.Context) (Snapshot, error) {
	snap, ok := s.store.(Snapshotter)
	if !ok {
		return Snapshot{}, ErrSnapshotUnsupported
	}
	return snap.ExportState(), nil
}

// ImportSnapshot replaces the committed state with snapshot. Records are
// normalized on the way in: missing versions start at 1 and outcomes whose
// experiment is absent are dropped.
func (s *Service) ImportSnapshot(ctx context.Context, snapshot Snapshot) error {
	snap, ok := s.store.(Snapshotter)
	if !ok {
		return ErrSnapshotUnsupported
	}
	ctx, span := s.tracer.Start(ctx, opImportSnapshot)
	started := time.Now()
	err := snap.Restore(ctx, snapshot)
	elapsed := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, opImportSnapshot, err == nil, elapsed)
	if err != nil {
		s.logger.Error("snapshot import failed", "operation", opImportSnapshot, "error", err)
		return err
	}
	s.logger.Info("snapshot imported",
		"ideas", len(snapshot.Ideas),
		"experiments", len(snapshot.Experiments),
		"outcomes", len(snapshot.Outcomes),
		"reflections", len(snapshot.Reflections))
	return nil
}
