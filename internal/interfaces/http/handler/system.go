package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/invoicing/backend/internal/application/ingestion"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ConsumerStats exposes ingestion counters
type ConsumerStats interface {
	Stats() ingestion.ConsumerStats
}

// SystemHandler serves liveness, readiness and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	db        Pinger
	consumer  ConsumerStats
}

// NewSystemHandler creates a SystemHandler; consumer may be nil when ingestion is disabled
func NewSystemHandler(name, version string, db Pinger, consumer ConsumerStats) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		db:        db,
		consumer:  consumer,
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string                   `json:"status"`
	Name      string                   `json:"name"`
	Version   string                   `json:"version"`
	GoVersion string                   `json:"go_version"`
	Uptime    string                   `json:"uptime"`
	Database  string                   `json:"database"`
	Ingestion *ingestion.ConsumerStats `json:"ingestion,omitempty"`
}

// Health reports liveness and database reachability. An unreachable database yields 503.
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Database:  "ok",
	}
	if h.consumer != nil {
		stats := h.consumer.Stats()
		resp.Ingestion = &stats
	}

	status := http.StatusOK
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			_ = c.Error(err)
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}
