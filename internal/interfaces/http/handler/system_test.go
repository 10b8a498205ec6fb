package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func systemRouter(h *SystemHandler) *gin.Engine {
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/system/info", h.GetSystemInfo)
	r.GET("/system/ping", h.Ping)
	return r
}

func TestSystemHandler_Health(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("healthy", func(t *testing.T) {
		h := NewSystemHandler("1.2.3", ready)
		h.now = func() time.Time { return fixed }

		w := serve(systemRouter(h), http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, ServiceName, resp.Service)
		assert.Equal(t, "2026-03-01T12:00:00Z", resp.Timestamp)
		assert.True(t, resp.Availability.IsReady())
	})

	t.Run("unhealthy when the store is down", func(t *testing.T) {
		w := serve(systemRouter(NewSystemHandler("1.2.3", down)), http.MethodGet, "/health", "")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "connection refused", resp.Availability.Reason)
	})
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("1.2.3", ready)
	assert.False(t, h.startTime.IsZero())

	w := serve(systemRouter(h), http.MethodGet, "/system/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, ServiceName, data["name"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemHandler_Ping(t *testing.T) {
	w := serve(systemRouter(NewSystemHandler("dev", ready)), http.MethodGet, "/system/ping", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "pong", data["message"])

	_, err := time.Parse(time.RFC3339, data["timestamp"].(string))
	assert.NoError(t, err)
}
