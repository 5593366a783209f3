package storage

import "errors"

// Common storage errors
var (
	// ErrMessageNotFound indicates that message was not found in storage
	ErrMessageNotFound = errors.New("message not found")

	// ErrForbidden indicates that user is not allowed to modify the resource
	ErrForbidden = errors.New("operation not permitted")

	// ErrMessageDeleted indicates that message was deleted and cannot be modified
	ErrMessageDeleted = errors.New("message deleted")

	// ErrDocumentNotFound indicates that document was not found in storage
	ErrDocumentNotFound = errors.New("document not found")

	// ErrIdempotencyConflict indicates that idempotency key was already used for another operation
	ErrIdempotencyConflict = errors.New("idempotency key reused for different operation")
)
