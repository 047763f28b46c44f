package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler("paycore", nil)
	require.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name         string
		database     Pinger
		wantStatus   int
		wantHealth   string
		wantDatabase any
	}{
		{"no database", nil, http.StatusOK, "ok", nil},
		{"database up", stubPinger{}, http.StatusOK, "ok", "up"},
		{"database down", stubPinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "degraded", "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler("paycore", tt.database)
			c, w := newTestContext(http.MethodGet, "/health")

			h.Health(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.wantStatus == http.StatusOK, resp.Success)
			data := resp.Data.(map[string]any)
			assert.Equal(t, tt.wantHealth, data["status"])
			assert.Equal(t, "paycore", data["name"])
			assert.Equal(t, Version, data["version"])
			assert.NotEmpty(t, data["go_version"])
			assert.Equal(t, tt.wantDatabase, data["database"])
		})
	}
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("paycore", nil)
	c, w := newTestContext(http.MethodGet, "/api/v1/system/ping")

	h.Ping(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "pong", data["message"])
	assert.NotEmpty(t, data["timestamp"])
}
