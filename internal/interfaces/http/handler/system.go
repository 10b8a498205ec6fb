package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	apployalty "github.com/qualee/backend/internal/application/loyalty"
	"github.com/qualee/backend/internal/interfaces/http/dto"
)

// ServiceName is reported by the health and info endpoints
const ServiceName = "qualee-loyalty"

// SystemHandler handles health and system endpoints
type SystemHandler struct {
	BaseHandler
	version      string
	availability apployalty.AvailabilityChecker
	startTime    time.Time
	now          func() time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(version string, availability apployalty.AvailabilityChecker) *SystemHandler {
	return &SystemHandler{
		version:      version,
		availability: availability,
		startTime:    time.Now(),
		now:          time.Now,
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status       string                         `json:"status" example:"healthy"`
	Service      string                         `json:"service" example:"qualee-loyalty"`
	Availability apployalty.ServiceAvailability `json:"availability"`
	Timestamp    string                         `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Health godoc
// @Summary      Health check
// @Description  200 when the data store is ready, 503 otherwise.
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	a := h.availability.Availability(c.Request.Context())
	resp := HealthResponse{
		Status:       "healthy",
		Service:      ServiceName,
		Availability: a,
		Timestamp:    h.now().UTC().Format(time.RFC3339),
	}
	if !a.IsReady() {
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"qualee-loyalty"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo godoc
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(SystemInfoResponse{
		Name:      ServiceName,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}))
}

// Ping godoc
// @Summary      Ping the API
// @Tags         system
// @Produce      json
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"message":   "pong",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}))
}
