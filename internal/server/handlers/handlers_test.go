package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatsync/internal/realtime"
	"github.com/iudanet/chatsync/internal/server/storage/sqlite"
	"github.com/iudanet/chatsync/pkg/api"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv связка реального хранилища, реестра и диспетчера
type testEnv struct {
	storage    *sqlite.Storage
	registry   *realtime.Registry
	dispatcher *realtime.Dispatcher
	router     *mux.Router
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := setupTestLogger()

	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	registry := realtime.NewRegistry(logger)
	t.Cleanup(registry.Shutdown)
	dispatcher := realtime.NewDispatcher(registry, logger)

	messages := NewMessageHandler(s, dispatcher, logger)
	documents := NewDocumentHandler(s, dispatcher, logger)

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/conversations/{id}/messages", messages.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/conversations/{id}/messages", messages.List).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/messages/{id}", messages.Update).Methods(http.MethodPatch)
	r.HandleFunc("/api/v1/messages/{id}", messages.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/api/v1/messages/{id}/reactions", messages.AddReaction).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/messages/{id}/reactions/{emoji}", messages.RemoveReaction).Methods(http.MethodDelete)
	r.HandleFunc("/api/v1/documents/{id}", documents.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/documents/{id}", documents.Put).Methods(http.MethodPut)

	return &testEnv{storage: s, registry: registry, dispatcher: dispatcher, router: r}
}

// subscribe регистрирует соединение пользователя и подписывает его на тему
func (e *testEnv) subscribe(t *testing.T, connID, userID, topic string) *realtime.BufferedSink {
	t.Helper()
	sink := realtime.NewBufferedSink(16)
	require.NoError(t, e.registry.Register(connID, userID, sink))
	require.NoError(t, e.registry.Join(connID, topic))
	return sink
}

// do выполняет запрос от имени пользователя; userID "" означает анонимный запрос
func (e *testEnv) do(t *testing.T, method, path, userID string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req = req.WithContext(WithIdentity(req.Context(), userID, userID))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// receive читает доставленные кадры без ожидания
func receive(t *testing.T, sink *realtime.BufferedSink) []api.Envelope {
	t.Helper()
	var out []api.Envelope
	for {
		select {
		case frame := <-sink.Frames():
			env, err := api.DecodeEnvelope(frame)
			require.NoError(t, err)
			out = append(out, *env)
		case <-time.After(20 * time.Millisecond):
			return out
		}
	}
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}
