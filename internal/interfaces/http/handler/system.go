package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paycore/backend/internal/infrastructure/logger"
	"github.com/paycore/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Version is the API version reported by the health endpoint
const Version = "1.0.0"

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping() error
}

// SystemHandler serves the liveness and system information endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	database  Pinger
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. database may be nil.
func NewSystemHandler(name string, database Pinger) *SystemHandler {
	return &SystemHandler{
		name:      name,
		database:  database,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Name      string `json:"name" example:"paycore"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
	Database  string `json:"database,omitempty" example:"up"`
}

// Health godoc
// @ID           getHealth
// @Summary      Health check
// @Description  Reports service version, uptime and database reachability. Answers 503 when the database is down.
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=HealthResponse}
// @Failure      503 {object} dto.Response{data=HealthResponse}
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	status := http.StatusOK
	if h.database != nil {
		resp.Database = "up"
		if err := h.database.Ping(); err != nil {
			logger.GetGinLogger(c).Warn("Database ping failed", zap.Error(err))
			resp.Database = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Description  Answers without touching any dependency
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=PingResponse}
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
