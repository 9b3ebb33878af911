// Package health serves liveness and readiness endpoints.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Probe checks one dependency
type Probe func(ctx context.Context) error

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Handler reports service health
type Handler struct {
	name      string
	startedAt time.Time
	probes    map[string]Probe
	timeout   time.Duration
}

// NewHandler creates a health handler that runs probes on readiness checks
func NewHandler(name string, probes map[string]Probe) *Handler {
	return &Handler{name: name, startedAt: time.Now(), probes: probes, timeout: 2 * time.Second}
}

// RegisterRoutes registers health routes on the root router
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Live)
	r.GET("/health/ready", h.Ready)
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"message":   h.name + " is running",
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"message":   "All systems operational",
		"timestamp": time.Now().UTC(),
	})
}

// Ready probes every dependency and answers 503 when any is down
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	deps := make(map[string]dependencyStatus, len(h.probes))
	allOK := true
	for name, probe := range h.probes {
		if err := probe(ctx); err != nil {
			deps[name] = dependencyStatus{OK: false, Message: err.Error()}
			allOK = false
			continue
		}
		deps[name] = dependencyStatus{OK: true}
	}

	status, code := "healthy", http.StatusOK
	if !allOK {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":       status,
		"uptime_sec":   int(time.Since(h.startedAt).Seconds()),
		"dependencies": deps,
		"timestamp":    time.Now().UTC(),
	})
}
