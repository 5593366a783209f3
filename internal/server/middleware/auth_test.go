package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatsync/internal/server/handlers"
	"github.com/iudanet/chatsync/pkg/api"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthMiddleware(t *testing.T) {
	jwtConfig := handlers.JWTConfig{
		Secret:         []byte("test-secret-key"),
		AccessTokenTTL: 15 * time.Minute,
	}
	token, _, err := handlers.GenerateAccessToken(jwtConfig, "user123", "testuser")
	require.NoError(t, err)

	foreign, _, err := handlers.GenerateAccessToken(handlers.JWTConfig{
		Secret:         []byte("another-secret"),
		AccessTokenTTL: 15 * time.Minute,
	}, "user123", "testuser")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		target     string
		wantStatus int
	}{
		{name: "bearer header", header: "Bearer " + token, target: "/test", wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + token, target: "/test", wantStatus: http.StatusOK},
		{name: "query token for websocket", target: "/ws?token=" + token, wantStatus: http.StatusOK},
		{name: "missing token", target: "/test", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", target: "/test", wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", target: "/test", wantStatus: http.StatusUnauthorized},
		{name: "foreign signature", header: "Bearer " + foreign, target: "/test", wantStatus: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc.def.ghi", target: "/test", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = handlers.GetUserID(r.Context())
				username, _ := handlers.GetUsername(r.Context())
				assert.Equal(t, "testuser", username)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			AuthMiddleware(setupTestLogger(), jwtConfig)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "user123", gotUser)
				return
			}

			assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			var resp api.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, "unauthorized", resp.Error)
		})
	}
}
