package types

import (
	"errors"
	"fmt"
)

// Storage operation errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidID     = errors.New("invalid entity ID")
	ErrDuplicateID   = errors.New("entity ID already indexed")
	ErrUnknownKind   = errors.New("unknown entity kind")
	ErrStoreClosed   = errors.New("store is closed")
	ErrAlreadyOpen   = errors.New("store is already open")
	ErrPersistence   = errors.New("persistence failure")
	ErrHasDependents = errors.New("entity has dependent children")
)

// Entity validation errors.
var (
	ErrMissingField = errors.New("missing required field")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrReferential  = errors.New("referenced entity does not exist")
)

// FieldError reports a validation failure on a single attribute. Err is
// ErrMissingField, ErrTypeMismatch, or an error from password hashing.
type FieldError struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Kind, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ReferenceError reports a foreign key that names a missing parent.
type ReferenceError struct {
	Kind   Kind   // Kind of the entity holding the foreign key.
	Field  string // Foreign-key attribute.
	Target Kind   // Kind the key should reference.
	ID     string // The dangling value.
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s.%s: %s %q does not exist", e.Kind, e.Field, e.Target, e.ID)
}

func (e *ReferenceError) Unwrap() error { return ErrReferential }

// DependentsError is returned by Delete under the restrict policy when
// children still reference the entity.
type DependentsError struct {
	Kind  Kind
	ID    string
	Child Kind
	Count int
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("%s %q has %d dependent %s", e.Kind, e.ID, e.Count, e.Child.Plural())
}

func (e *DependentsError) Unwrap() error { return ErrHasDependents }
