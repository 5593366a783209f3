package stream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatsync/internal/client/storage/boltdb"
	"github.com/iudanet/chatsync/internal/crdt"
	"github.com/iudanet/chatsync/internal/models"
	"github.com/iudanet/chatsync/internal/realtime"
	"github.com/iudanet/chatsync/internal/server/handlers"
	"github.com/iudanet/chatsync/internal/transport/ws"
	"github.com/iudanet/chatsync/pkg/api"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type connIDRecorder struct {
	ids []string
	mu  sync.Mutex
}

func (r *connIDRecorder) SetConnectionID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *connIDRecorder) first() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ids) == 0 {
		return ""
	}
	return r.ids[0]
}

func newApplier() *ApplierMock {
	return &ApplierMock{
		ApplyRemoteDocumentFunc: func(ctx context.Context, remote *crdt.Document) (*crdt.Document, error) {
			return remote, nil
		},
		FetchConversationFunc: func(ctx context.Context, conversationID string) (int, error) {
			return 0, nil
		},
		TriggerFunc: func() {},
	}
}

func setupListener(t *testing.T, baseURL string, applier Applier, conn ConnectionIDSetter, opts Options) (*Listener, *boltdb.Storage) {
	t.Helper()
	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return NewListener(baseURL, "token", applier, store, store, conn, opts, testLogger), store
}

func envelope(t *testing.T, typ api.EventType, topic, userID string, data any) *api.Envelope {
	t.Helper()
	env, err := api.NewEnvelope(typ, topic, userID, data, time.Now())
	require.NoError(t, err)
	return env
}

func TestListener_wsURL(t *testing.T) {
	tests := []struct {
		baseURL string
		want    string
	}{
		{baseURL: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{baseURL: "https://chat.example.com/", want: "wss://chat.example.com/ws"},
		{baseURL: "ws://localhost:8080", want: "ws://localhost:8080/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.baseURL, func(t *testing.T) {
			l := NewListener(tt.baseURL, "", nil, nil, nil, nil, Options{}, testLogger)
			assert.Equal(t, tt.want, l.wsURL())
		})
	}
}

func TestListener_HandleMessage(t *testing.T) {
	l, store := setupListener(t, "http://localhost", newApplier(), nil, Options{})
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := api.Message{
		ID:             "srv-1",
		ConversationID: "conv-1",
		SenderID:       "bob",
		Body:           "hi",
		CreatedAt:      created,
		UpdatedAt:      created,
	}

	t.Run("new message is cached", func(t *testing.T) {
		env := envelope(t, api.TypeMessage, "conv-1", "bob", api.MessageData{Action: api.ActionCreated, Message: msg})
		require.NoError(t, l.Handle(ctx, env))

		cached, err := store.GetMessage(ctx, "srv-1")
		require.NoError(t, err)
		assert.Equal(t, "hi", cached.Body)
		assert.Equal(t, models.MessageStatusSent, cached.Status)

		seen, err := store.GetLastSeen(ctx, "conv-1")
		require.NoError(t, err)
		assert.True(t, created.Equal(seen))
	})

	t.Run("stale update is ignored", func(t *testing.T) {
		stale := msg
		stale.Body = "older"
		stale.UpdatedAt = created.Add(-time.Minute)
		env := envelope(t, api.TypeMessage, "conv-1", "bob", api.MessageData{Action: api.ActionUpdated, Message: stale})
		require.NoError(t, l.Handle(ctx, env))

		cached, err := store.GetMessage(ctx, "srv-1")
		require.NoError(t, err)
		assert.Equal(t, "hi", cached.Body)
	})

	t.Run("pending local edit is kept", func(t *testing.T) {
		require.NoError(t, store.SetMessageStatus(ctx, "srv-1", models.MessageStatusPending))

		newer := msg
		newer.Body = "remote edit"
		newer.UpdatedAt = created.Add(time.Minute)
		env := envelope(t, api.TypeMessage, "conv-1", "bob", api.MessageData{Action: api.ActionUpdated, Message: newer})
		require.NoError(t, l.Handle(ctx, env))

		cached, err := store.GetMessage(ctx, "srv-1")
		require.NoError(t, err)
		assert.Equal(t, "hi", cached.Body)
		assert.Equal(t, models.MessageStatusPending, cached.Status)
	})
}

func TestListener_HandleReaction(t *testing.T) {
	l, store := setupListener(t, "http://localhost", newApplier(), nil, Options{})
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, &models.Message{ID: "srv-1", ConversationID: "conv-1", Body: "hi"}))

	added := envelope(t, api.TypeReaction, "conv-1", "bob",
		api.ReactionData{Action: api.ActionAdded, MessageID: "srv-1", Emoji: "👍"})

	// Повторная доставка события не дублирует реакцию
	require.NoError(t, l.Handle(ctx, added))
	require.NoError(t, l.Handle(ctx, added))

	msg, err := store.GetMessage(ctx, "srv-1")
	require.NoError(t, err)
	require.Len(t, msg.Reactions, 1)
	assert.Equal(t, "bob", msg.Reactions[0].UserID)

	removed := envelope(t, api.TypeReaction, "conv-1", "bob",
		api.ReactionData{Action: api.ActionRemoved, MessageID: "srv-1", Emoji: "👍"})
	require.NoError(t, l.Handle(ctx, removed))

	msg, err = store.GetMessage(ctx, "srv-1")
	require.NoError(t, err)
	assert.Empty(t, msg.Reactions)

	t.Run("unknown message", func(t *testing.T) {
		env := envelope(t, api.TypeReaction, "conv-1", "bob",
			api.ReactionData{Action: api.ActionAdded, MessageID: "missing", Emoji: "👍"})
		assert.NoError(t, l.Handle(ctx, env))
	})
}

func TestListener_HandleTask(t *testing.T) {
	applier := newApplier()
	l, _ := setupListener(t, "http://localhost", applier, nil, Options{})

	editor := crdt.NewEditor(crdt.NewLamportClockWithNodeID("node-b"))
	doc, _, err := editor.ApplyLocalChange(crdt.NewDocument("task-1"), crdt.SetField(models.TaskFieldTitle, "Ship"))
	require.NoError(t, err)
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	env := envelope(t, api.TypeTask, api.TaskTopic("task-1"), "bob", api.TaskData{DocumentID: "task-1", Document: raw})
	require.NoError(t, l.Handle(context.Background(), env))

	calls := applier.ApplyRemoteDocumentCalls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Remote.Equal(doc))

	t.Run("signals are not applied", func(t *testing.T) {
		env := envelope(t, api.TypeTyping, "conv-1", "bob", api.TypingData{Typing: true})
		require.NoError(t, l.Handle(context.Background(), env))
		assert.Len(t, applier.ApplyRemoteDocumentCalls(), 1)
	})
}

type realtimeServer struct {
	registry   *realtime.Registry
	dispatcher *realtime.Dispatcher
	srv        *httptest.Server
}

// setupRealtimeServer поднимает websocket handler; токен "Bearer <user>" считается валидным
func setupRealtimeServer(t *testing.T) *realtimeServer {
	t.Helper()
	registry := realtime.NewRegistry(testLogger)
	dispatcher := realtime.NewDispatcher(registry, testLogger)
	handler := ws.NewHandler(registry, dispatcher, ws.Options{}, testLogger)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || user == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r.WithContext(handlers.WithIdentity(r.Context(), user, user)))
	}))
	t.Cleanup(func() {
		registry.Shutdown()
		srv.Close()
	})
	return &realtimeServer{registry: registry, dispatcher: dispatcher, srv: srv}
}

func TestListener_Run(t *testing.T) {
	rs := setupRealtimeServer(t)
	applier := newApplier()
	conn := &connIDRecorder{}

	events := make(chan *api.Envelope, 8)
	l, store := setupListener(t, rs.srv.URL, applier, conn, Options{
		Conversations: []string{"conv-1"},
		Tasks:         []string{"task-1"},
		OnEvent:       func(env *api.Envelope) { events <- env },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(rs.registry.SubscribersOf("conv-1")) == 1 &&
			len(rs.registry.SubscribersOf(api.TaskTopic("task-1"))) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(applier.TriggerCalls()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Len(t, applier.FetchConversationCalls(), 1)
	assert.Equal(t, "conv-1", applier.FetchConversationCalls()[0].ConversationID)
	assert.NotEmpty(t, conn.first())

	created := time.Now().UTC()
	env := envelope(t, api.TypeMessage, "conv-1", "bob", api.MessageData{
		Action:  api.ActionCreated,
		Message: api.Message{ID: "srv-9", ConversationID: "conv-1", SenderID: "bob", Body: "live", CreatedAt: created, UpdatedAt: created},
	})
	frame, err := env.Encode()
	require.NoError(t, err)
	report := rs.dispatcher.Publish(context.Background(), realtime.Event{
		Kind:         realtime.KindCreated,
		Topic:        "conv-1",
		OriginatorID: "bob",
		Payload:      frame,
		Timestamp:    created,
	}, realtime.PublishOptions{})
	require.Len(t, report.Succeeded, 1)

	select {
	case got := <-events:
		assert.Equal(t, api.TypeMessage, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	msg, err := store.GetMessage(context.Background(), "srv-9")
	require.NoError(t, err)
	assert.Equal(t, "live", msg.Body)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListener_Reconnects(t *testing.T) {
	rs := setupRealtimeServer(t)
	applier := newApplier()

	l, _ := setupListener(t, rs.srv.URL, applier, nil, Options{
		Conversations:  []string{"conv-1"},
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(rs.registry.SubscribersOf("conv-1")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Сервер отключает соединение, слушатель подключается заново и догружает беседу
	for _, id := range rs.registry.SubscribersOf("conv-1") {
		rs.registry.Unregister(id)
	}

	require.Eventually(t, func() bool {
		return len(applier.FetchConversationCalls()) >= 2 &&
			len(rs.registry.SubscribersOf("conv-1")) == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestListener_Unauthorized(t *testing.T) {
	rs := setupRealtimeServer(t)

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	l := NewListener(rs.srv.URL, "", newApplier(), store, store, nil, Options{}, testLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.ErrorIs(t, l.Run(ctx), errUnauthorized)
}
