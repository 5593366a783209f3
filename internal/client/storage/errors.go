package storage

import "errors"

// Common client storage errors
var (
	// ErrSessionNotFound indicates that user is not logged in
	ErrSessionNotFound = errors.New("session not found")

	// ErrActionNotFound indicates that queued action was not found
	ErrActionNotFound = errors.New("action not found")

	// ErrActionExists indicates that action with the same ID is already queued
	ErrActionExists = errors.New("action already queued")

	// ErrMessageNotFound indicates that message is not in the local cache
	ErrMessageNotFound = errors.New("message not found")

	// ErrDocumentNotFound indicates that document is not in the local cache
	ErrDocumentNotFound = errors.New("document not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
