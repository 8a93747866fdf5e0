package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates input rejected by business rules.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition indicates a status change the workflow does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict indicates the resource state forbids the operation.
	ErrConflict = errors.New("conflict")
	// ErrDuplicateNumber indicates a document number collision.
	ErrDuplicateNumber = errors.New("duplicate document number")
	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)
