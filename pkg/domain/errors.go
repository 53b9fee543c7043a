package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every typed error below matches exactly one of these via errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrImmutableEntity     = errors.New("immutable entity")
	ErrReferentialConflict = errors.New("referential conflict")
	ErrValidation          = errors.New("validation failed")
	ErrNotADraft           = errors.New("not a draft")
)

// NotFoundError is returned when an entity id is unknown.
type NotFoundError struct {
	Entity EntityType
	ID     int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TransitionError is returned by the state machine when a requested status is
// not reachable from the current one.
type TransitionError struct {
	Entity EntityType
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition from '%s' to '%s'", e.Entity, e.From, e.To)
}

// Is reports whether target is ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ConflictError is returned when the caller's expected version does not match
// the stored version. The caller should re-fetch and retry.
type ConflictError struct {
	Entity   EntityType
	ID       int64
	Expected int64
	Current  int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d version conflict: expected %d, current %d", e.Entity, e.ID, e.Expected, e.Current)
}

// Is reports whether target is ErrConcurrencyConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConcurrencyConflict }

// ImmutableError is returned for edits to a completed experiment.
type ImmutableError struct {
	Entity EntityType
	ID     int64
}

func (e *ImmutableError) Error() string {
	return fmt.Sprintf("completed %ss are immutable (%s %d)", e.Entity, e.Entity, e.ID)
}

// Is reports whether target is ErrImmutableEntity.
func (e *ImmutableError) Is(target error) bool { return target == ErrImmutableEntity }

// ReferentialConflictError is returned when a delete is blocked by a dependent record.
type ReferentialConflictError struct {
	Entity     EntityType
	ID         int64
	Referrer   EntityType
	ReferrerID int64
}

func (e *ReferentialConflictError) Error() string {
	return fmt.Sprintf("%s %d still referenced by %s %d", e.Entity, e.ID, e.Referrer, e.ReferrerID)
}

// Is reports whether target is ErrReferentialConflict.
func (e *ReferentialConflictError) Is(target error) bool { return target == ErrReferentialConflict }

// ValidationError names the first input field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotADraftError is returned when a draft-only edit targets a published idea.
type NotADraftError struct {
	ID     int64
	Status IdeaStatus
}

func (e *NotADraftError) Error() string {
	return fmt.Sprintf("only draft ideas can be updated (idea %d is %s)", e.ID, e.Status)
}

// Is reports whether target is ErrNotADraft.
func (e *NotADraftError) Is(target error) bool { return target == ErrNotADraft }

var domainSentinels = []error{
	ErrNotFound,
	ErrInvalidTransition,
	ErrConcurrencyConflict,
	ErrImmutableEntity,
	ErrReferentialConflict,
	ErrValidation,
	ErrNotADraft,
}

// IsDomainError reports whether err is part of the domain taxonomy, as
// opposed to an infrastructure failure.
func IsDomainError(err error) bool {
	for _, sentinel := range domainSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
