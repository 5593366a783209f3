package boltdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatsync/internal/client/storage"
	"github.com/iudanet/chatsync/internal/crdt"
	"github.com/iudanet/chatsync/internal/models"
)

func TestDocuments_SaveGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	_, err := store.GetDocument(ctx, "task-1")
	assert.True(t, errors.Is(err, storage.ErrDocumentNotFound))

	editor := crdt.NewEditor(crdt.NewLamportClockWithNodeID("node-a"))
	doc, _, err := editor.ApplyLocalChanges(crdt.NewDocument("task-1"),
		crdt.SetField("title", "Ship it"),
		crdt.AddElement("labels", "urgent"),
	)
	require.NoError(t, err)
	stored, err := store.MergeDocument(ctx, doc)
	require.NoError(t, err)
	assert.True(t, stored.Equal(doc))

	got, err := store.GetDocument(ctx, "task-1")
	require.NoError(t, err)
	assert.True(t, got.Equal(doc))
	assert.True(t, got.State().Contains("labels", "urgent"))

	ids, err := store.ListDocumentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"task-1"}, ids)
}

func TestDocuments_MergeKeepsConcurrentChanges(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	alice := crdt.NewEditor(crdt.NewLamportClockWithNodeID("node-a"))
	base, _, err := alice.ApplyLocalChange(crdt.NewDocument("task-1"), crdt.SetField("title", "Draft"))
	require.NoError(t, err)
	_, err = store.MergeDocument(ctx, base)
	require.NoError(t, err)

	// Оба писателя исходят из одной устаревшей копии
	withStatus, _, err := alice.ApplyLocalChange(base, crdt.SetField("status", "done"))
	require.NoError(t, err)
	bob := crdt.NewEditor(crdt.NewLamportClockWithNodeID("node-b"))
	withAssignee, _, err := bob.ApplyLocalChange(base, crdt.SetField("assignee", "bob"))
	require.NoError(t, err)

	_, err = store.MergeDocument(ctx, withStatus)
	require.NoError(t, err)
	merged, err := store.MergeDocument(ctx, withAssignee)
	require.NoError(t, err)

	got, err := store.GetDocument(ctx, "task-1")
	require.NoError(t, err)
	assert.True(t, got.Equal(merged))

	state := got.State()
	for field, want := range map[string]string{"title": "Draft", "status": "done", "assignee": "bob"} {
		var value string
		ok, err := state.Decode(field, &value)
		require.NoError(t, err)
		require.True(t, ok, field)
		assert.Equal(t, want, value, field)
	}
}

func TestSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	_, err := store.GetSession(ctx)
	assert.True(t, errors.Is(err, storage.ErrSessionNotFound))

	session := &models.Session{
		UserID:    "u1",
		Username:  "alice",
		ServerURL: "http://localhost:8080",
		Token:     "token",
		ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, session.Token, got.Token)
	assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, store.DeleteSession(ctx))
	_, err = store.GetSession(ctx)
	assert.True(t, errors.Is(err, storage.ErrSessionNotFound))
}
