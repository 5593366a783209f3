package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		pingErr     error
		name        string
		wantStatus  string
		wantStorage string
		wantCode    int
	}{
		{name: "healthy", wantCode: http.StatusOK, wantStatus: "ok", wantStorage: "ok"},
		{
			name:        "storage down",
			pingErr:     errors.New("disk I/O error"),
			wantCode:    http.StatusServiceUnavailable,
			wantStatus:  "degraded",
			wantStorage: "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pinger := pingerFunc(func(context.Context) error { return tt.pingErr })
			handler := NewHealthHandler(pinger, fixedCounter(3), "", setupTestLogger())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			w := httptest.NewRecorder()

			handler.Health(w, req)

			resp := w.Result()
			defer func() {
				err := resp.Body.Close()
				assert.NoError(t, err)
			}()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			var healthResp struct {
				Status      string `json:"status"`
				Version     string `json:"version"`
				Storage     string `json:"storage"`
				Connections int    `json:"connections"`
			}
			err := json.NewDecoder(resp.Body).Decode(&healthResp)
			assert.NoError(t, err)

			assert.Equal(t, tt.wantStatus, healthResp.Status)
			assert.Equal(t, tt.wantStorage, healthResp.Storage)
			assert.Equal(t, "dev", healthResp.Version)
			assert.Equal(t, 3, healthResp.Connections)
		})
	}
}
