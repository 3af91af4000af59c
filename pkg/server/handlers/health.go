package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/percorso"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles liveness and readiness probes
type HealthHandler struct {
	admin percorso.GraphAdmin
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(admin percorso.GraphAdmin) *HealthHandler {
	return &HealthHandler{
		admin: admin,
	}
}

// Healthz handles GET /healthz - basic liveness check
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "percorso",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
		"build_info": gin.H{
			"git_commit": GitCommit,
			"build_time": BuildTime,
			"go_version": GoVersion,
		},
	})
}

// Readyz handles GET /readyz. The graph store is the one backing
// service the server cannot answer without, so readiness is a stats
// probe against it.
func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := gin.H{
		"status":    "ready",
		"service":   "percorso",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    gin.H{},
	}
	checks := response["checks"].(gin.H)

	if h.admin == nil {
		checks["store"] = gin.H{
			"status": "unhealthy",
			"error":  "percorso client not initialized",
		}
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	startTime := time.Now()
	stats, err := h.admin.Stats(ctx)
	duration := time.Since(startTime)

	if err != nil {
		checks["store"] = gin.H{
			"status":   "unhealthy",
			"error":    err.Error(),
			"duration": duration.String(),
		}
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	checks["store"] = gin.H{
		"status":   "healthy",
		"duration": duration.String(),
		"nodes":    stats.NodeCount,
		"edges":    stats.EdgeCount,
	}
	c.JSON(http.StatusOK, response)
}
