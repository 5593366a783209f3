package data

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatsync/internal/client/storage"
	"github.com/iudanet/chatsync/internal/client/storage/boltdb"
	clientsync "github.com/iudanet/chatsync/internal/client/sync"
	"github.com/iudanet/chatsync/internal/crdt"
	"github.com/iudanet/chatsync/internal/models"
)

func setupService(t *testing.T) (*service, *boltdb.Storage) {
	t.Helper()
	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock, err := LoadClock(context.Background(), store)
	require.NoError(t, err)

	svc := NewService(clientsync.Stores{
		Queue:     store,
		Messages:  store,
		IDs:       store,
		Documents: store,
		Metadata:  store,
	}, clock, "alice").(*service)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store
}

func queued(t *testing.T, store *boltdb.Storage) []*models.OfflineAction {
	t.Helper()
	actions, err := store.PeekBatch(context.Background(), 0)
	require.NoError(t, err)
	return actions
}

func TestService_SendMessage(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, "conv-1", "hello")
	require.NoError(t, err)

	assert.True(t, models.IsLocalID(msg.ID))
	assert.Equal(t, models.MessageStatusPending, msg.Status)
	assert.Equal(t, "alice", msg.SenderID)

	// Сообщение сразу видно в локальной беседе
	msgs, err := svc.ListMessages(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)

	actions := queued(t, store)
	require.Len(t, actions, 1)
	action := actions[0]
	assert.Equal(t, msg.ClientID, action.ID)
	assert.Equal(t, models.ConversationStream("conv-1"), action.Stream)
	assert.Equal(t, models.ActionTypeMessage, action.Type)
	assert.Equal(t, models.ActionCreate, action.Action)

	var payload models.MessagePayload
	require.NoError(t, json.Unmarshal(action.Payload, &payload))
	assert.Equal(t, msg.ID, payload.MessageID)
	assert.Equal(t, "hello", payload.Body)
}

func TestService_SendMessage_Validation(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name           string
		conversationID string
		body           string
	}{
		{name: "empty body", conversationID: "conv-1", body: "   "},
		{name: "too long body", conversationID: "conv-1", body: string(make([]byte, 5000))},
		{name: "bad conversation", conversationID: "conv 1", body: "hi"},
		{name: "empty conversation", conversationID: "", body: "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, tt.conversationID, tt.body)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, queued(t, store))
}

func TestService_EditAndDelete(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, "conv-1", "helo")
	require.NoError(t, err)

	t.Run("edit local message", func(t *testing.T) {
		edited, err := svc.EditMessage(ctx, msg.ID, "hello")
		require.NoError(t, err)
		assert.Equal(t, "hello", edited.Body)

		actions := queued(t, store)
		require.Len(t, actions, 2)
		assert.Equal(t, models.ActionUpdate, actions[1].Action)
	})

	t.Run("edit after confirmation resolves server id", func(t *testing.T) {
		confirmed := msg.Clone()
		confirmed.ID = "srv-1"
		confirmed.Status = models.MessageStatusSent
		require.NoError(t, store.ReplaceMessageID(ctx, msg.ID, confirmed))
		require.NoError(t, store.SaveIDMapping(ctx, msg.ID, "srv-1"))

		edited, err := svc.EditMessage(ctx, msg.ID, "hello again")
		require.NoError(t, err)
		assert.Equal(t, "srv-1", edited.ID)
		assert.Equal(t, models.MessageStatusPending, edited.Status)

		actions := queued(t, store)
		var payload models.MessagePayload
		require.NoError(t, json.Unmarshal(actions[len(actions)-1].Payload, &payload))
		assert.Equal(t, "srv-1", payload.MessageID)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := svc.DeleteMessage(ctx, "srv-1")
		require.NoError(t, err)
		assert.True(t, deleted.Deleted)
		assert.Empty(t, deleted.Body)

		_, err = svc.EditMessage(ctx, "srv-1", "zombie")
		assert.ErrorIs(t, err, ErrMessageDeleted)
	})

	t.Run("unknown message", func(t *testing.T) {
		_, err := svc.DeleteMessage(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrMessageNotFound)
	})
}

func TestService_React(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, "conv-1", "hello")
	require.NoError(t, err)

	got, err := svc.React(ctx, msg.ID, "👍", false)
	require.NoError(t, err)
	require.Len(t, got.Reactions, 1)

	// Повторное добавление не дублирует реакцию
	got, err = svc.React(ctx, msg.ID, "👍", false)
	require.NoError(t, err)
	assert.Len(t, got.Reactions, 1)

	got, err = svc.React(ctx, msg.ID, "👍", true)
	require.NoError(t, err)
	assert.Empty(t, got.Reactions)

	actions := queued(t, store)
	require.Len(t, actions, 4)
	assert.Equal(t, models.ActionTypeReaction, actions[3].Type)
	assert.Equal(t, models.ActionDelete, actions[3].Action)

	_, err = svc.React(ctx, msg.ID, "bad emoji", false)
	assert.Error(t, err)
}

func TestService_UpdateTask(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	task, err := svc.UpdateTask(ctx, "task-1",
		crdt.SetField(models.TaskFieldTitle, "Write docs"),
		crdt.AddElement(models.TaskFieldLabels, "docs"),
	)
	require.NoError(t, err)
	assert.Equal(t, "Write docs", task.Title)
	assert.Equal(t, []string{"docs"}, task.Labels)

	got, err := svc.GetTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, task, got)

	actions := queued(t, store)
	require.Len(t, actions, 1)
	assert.Equal(t, models.DocumentStream("task-1"), actions[0].Stream)
	assert.Equal(t, models.ActionTypeDocument, actions[0].Type)

	// Часы сохраняются, чтобы после перезапуска метки продолжали расти
	counter, err := store.GetClock(ctx)
	require.NoError(t, err)
	assert.Equal(t, svc.editor.Clock().GetTimestamp(), counter)
	assert.Positive(t, counter)

	t.Run("no mutations enqueue nothing", func(t *testing.T) {
		_, err := svc.UpdateTask(ctx, "task-1")
		require.NoError(t, err)
		assert.Len(t, queued(t, store), 1)
	})

	t.Run("unknown task", func(t *testing.T) {
		_, err := svc.GetTask(ctx, "task-2")
		assert.ErrorIs(t, err, storage.ErrDocumentNotFound)
	})
}

// interleavedDocuments выполняет before перед первым слиянием,
// имитируя правку пользователя, пришедшую во время применения серверной версии
type interleavedDocuments struct {
	storage.DocumentStorage
	before func()
	once   sync.Once
}

func (d *interleavedDocuments) MergeDocument(ctx context.Context, doc *crdt.Document) (*crdt.Document, error) {
	d.once.Do(d.before)
	return d.DocumentStorage.MergeDocument(ctx, doc)
}

func TestService_UpdateTaskDuringRemoteMerge(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	_, err := svc.UpdateTask(ctx, "task-1", crdt.SetField(models.TaskFieldTitle, "Draft"))
	require.NoError(t, err)
	base, err := store.GetDocument(ctx, "task-1")
	require.NoError(t, err)

	bob := crdt.NewEditor(crdt.NewLamportClockWithNodeID("client-b"))
	remote, _, err := bob.ApplyLocalChange(base, crdt.SetField(models.TaskFieldAssignee, "bob"))
	require.NoError(t, err)

	docs := &interleavedDocuments{DocumentStorage: store}
	docs.before = func() {
		_, err := svc.UpdateTask(ctx, "task-1", crdt.SetField(models.TaskFieldStatus, "done"))
		require.NoError(t, err)
	}
	coord := clientsync.NewCoordinator(&clientsync.APIClientMock{}, clientsync.Stores{
		Queue:     store,
		Messages:  store,
		IDs:       store,
		Documents: docs,
		Metadata:  store,
	}, svc.editor.Clock(), clientsync.DefaultOptions(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	merged, err := coord.ApplyRemoteDocument(ctx, remote)
	require.NoError(t, err)

	task, err := svc.GetTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "Draft", task.Title)
	assert.Equal(t, "done", task.Status, "local edit made during merge must survive")
	assert.Equal(t, "bob", task.Assignee)

	fromMerge, err := models.TaskFromDocument(merged)
	require.NoError(t, err)
	assert.Equal(t, task, fromMerge)

	// Правки нет на сервере, поэтому документ снова стоит в очереди на отправку
	var documentSyncs int
	for _, action := range queued(t, store) {
		if action.Type == models.ActionTypeDocument {
			documentSyncs++
		}
	}
	assert.GreaterOrEqual(t, documentSyncs, 2)
}

func TestService_RetryAndStatus(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, "conv-1", "hello")
	require.NoError(t, err)

	require.NoError(t, store.Drop(ctx, msg.ClientID, "server error"))
	require.NoError(t, store.SetMessageStatus(ctx, msg.ID, models.MessageStatusFailed))

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Pending)
	require.Len(t, status.Failed, 1)
	assert.Equal(t, "server error", status.Failed[0].LastError)
	require.Len(t, status.FailedMessages, 1)

	action, err := svc.Retry(ctx, msg.ClientID)
	require.NoError(t, err)
	assert.Equal(t, msg.ClientID, action.ID)

	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Pending)
	assert.Empty(t, status.Failed)
	assert.Empty(t, status.FailedMessages)

	restored, err := store.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusPending, restored.Status)

	_, err = svc.Retry(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrActionNotFound)
}

func TestLoadClock(t *testing.T) {
	_, store := setupService(t)
	ctx := context.Background()

	require.NoError(t, store.SaveClock(ctx, 42))

	clock, err := LoadClock(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, int64(42), clock.GetTimestamp())

	nodeID, err := store.GetOrCreateNodeID(ctx)
	require.NoError(t, err)
	assert.Equal(t, nodeID, clock.GetNodeID())
}
