package handler

import (
	"net/http"

	"tvtime-service/internal/browse"
	"tvtime-service/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles admin-related endpoints
type AdminHandler struct {
	tmdbService  *service.TMDBService
	recorder     *service.TrendRecorder
	registry     *browse.Registry
	storageKind  string
	trendBackend string
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(tmdb *service.TMDBService, recorder *service.TrendRecorder, registry *browse.Registry, storageKind, trendBackend string) *AdminHandler {
	return &AdminHandler{
		tmdbService:  tmdb,
		recorder:     recorder,
		registry:     registry,
		storageKind:  storageKind,
		trendBackend: trendBackend,
	}
}

// GetStatus returns service status
// GET /api/v1/status
func (h *AdminHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"tmdb_enabled":    h.tmdbService.IsConfigured(),
		"tmdb_keys":       h.tmdbService.KeyCount(),
		"rate_limited":    h.tmdbService.RateLimited(),
		"storage_backend": h.storageKind,
		"trend_backend":   h.trendBackend,
		"trend_breaker":   h.recorder.BreakerState(),
		"sessions":        h.registry.Len(),
	})
}
