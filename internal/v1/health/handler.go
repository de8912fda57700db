// Package health exposes liveness and readiness endpoints for the admin
// server.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/blazerhq/blazer/internal/v1/logging"
)

// Pinger reports backend connectivity. Satisfied by *store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler manages health check endpoints
type Handler struct {
	store Pinger
}

// NewHandler creates a new health check handler
func NewHandler(store Pinger) *Handler {
	return &Handler{store: store}
}

// Liveness reports whether the process is up. It never checks dependencies;
// a crashed Redis must not get the pod restarted.
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Readiness reports whether the server can take traffic: the store must be
// reachable.
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	storeStatus := "healthy"
	if err := h.store.Ping(ctx); err != nil {
		logging.Error(ctx, "Readiness check failed: store unreachable", zap.Error(err))
		storeStatus = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": storeStatus,
		"checks": gin.H{
			"redis": storeStatus,
		},
	})
}
