package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatsync/internal/crdt"
	"github.com/iudanet/chatsync/internal/server/storage"
)

func TestDocumentStorage_MergeDocument(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := s.GetDocument(ctx, "task-1")
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)

	alice := crdt.NewEditor(crdt.NewLamportClockWithNodeID("alice"))
	bob := crdt.NewEditor(crdt.NewLamportClockWithNodeID("bob"))

	docA, _, err := alice.ApplyLocalChange(crdt.NewDocument("task-1"), crdt.SetField("title", "A"))
	require.NoError(t, err)
	docB, _, err := bob.ApplyLocalChange(crdt.NewDocument("task-1"), crdt.AddElement("labels", "bug"))
	require.NoError(t, err)

	first, err := s.MergeDocument(ctx, docA)
	require.NoError(t, err)
	assert.True(t, first.Equal(docA))

	merged, err := s.MergeDocument(ctx, docB)
	require.NoError(t, err)
	assert.Equal(t, 2, merged.Len())

	stored, err := s.GetDocument(ctx, "task-1")
	require.NoError(t, err)
	assert.True(t, stored.Equal(merged))
	assert.True(t, stored.State().Contains("labels", "bug"))

	// Повторная отправка той же версии ничего не меняет
	again, err := s.MergeDocument(ctx, docB)
	require.NoError(t, err)
	assert.True(t, again.Equal(merged))
}
