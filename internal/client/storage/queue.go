package storage

import (
	"context"
	"time"

	"github.com/iudanet/chatsync/internal/models"
)

//go:generate moq -out queue_mock.go . ActionQueue

// ActionQueue defines durable FIFO queue of offline actions.
// Records survive client restarts and are removed only after server acknowledgement
// or after the retry ceiling is reached.
type ActionQueue interface {
	// Enqueue appends action to the end of the queue and assigns its Seq.
	// Returns ErrActionExists if action with the same ID is already queued
	Enqueue(ctx context.Context, action *models.OfflineAction) error

	// PeekBatch returns up to n oldest actions in creation order without removing them
	PeekBatch(ctx context.Context, n int) ([]*models.OfflineAction, error)

	// Get returns queued action by ID
	// Returns ErrActionNotFound if action doesn't exist
	Get(ctx context.Context, id string) (*models.OfflineAction, error)

	// Update rewrites stored action keeping its position in the queue
	Update(ctx context.Context, action *models.OfflineAction) error

	// Ack removes action confirmed by the server
	Ack(ctx context.Context, id string) error

	// IncrementRetry increases retry counter, postpones next attempt
	// and returns the new counter value
	IncrementRetry(ctx context.Context, id string, nextAttempt time.Time) (int, error)

	// Reschedule postpones next attempt without touching retry counter
	Reschedule(ctx context.Context, id string, at time.Time) error

	// Drop removes action from the queue and keeps it in the failed list
	// so the user can retry it later
	Drop(ctx context.Context, id string, reason string) error

	// Pending returns number of queued actions
	Pending(ctx context.Context) (int, error)

	// Failed returns dropped actions in the order they were created
	Failed(ctx context.Context) ([]*models.OfflineAction, error)

	// Requeue moves failed action back to the end of the queue with reset retry counter
	Requeue(ctx context.Context, id string) (*models.OfflineAction, error)
}
