package memory

import (
	"errors"
	"learnloop/pkg/domain"
	"time"
)

// versionedRecord is satisfied by pointers to records embedding domain.Versioned.
type versionedRecord[T any] interface {
	*T
	CurrentVersion() int64
	Record() domain.Versioned
	Restore(domain.Versioned)
	Bump(time.Time)
}

var errNilMutator = errors.New("mutator must not be nil")

// applyGuarded is the optimistic concurrency guard shared by every versioned
// kind. The stored record is left untouched unless the id exists, its version
// equals expectedVersion and the mutator succeeds on a private copy. On
// success the version grows by exactly one and updatedAt is set to the
// transaction time. Identity, createdAt and version cannot be changed by the
// mutator.
func applyGuarded[T any, P versionedRecord[T]](
	tx *transaction,
	entity domain.EntityType,
	bucket map[int64]T,
	id, expectedVersion int64,
	clone func(T) T,
	mutator func(*T) error,
) (T, error) {
	var zero T
	if mutator == nil {
		return zero, errNilMutator
	}
	current, ok := bucket[id]
	if !ok {
		return zero, domain.NotFoundError{Entity: entity, ID: id}
	}
	if stored := P(&current).CurrentVersion(); stored != expectedVersion {
		return zero, &domain.ConflictError{Entity: entity, ID: id, Expected: expectedVersion, Current: stored}
	}
	meta := P(&current).Record()

	before := clone(current)
	working := clone(current)
	if err := mutator(&working); err != nil {
		return zero, err
	}
	P(&working).Restore(meta)
	P(&working).Bump(tx.now)

	bucket[id] = clone(working)
	tx.recordChange(Change{Entity: entity, Action: domain.ActionUpdate, Before: before, After: clone(working)})
	return clone(working), nil
}
