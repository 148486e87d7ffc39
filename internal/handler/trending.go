package handler

import (
	"net/http"
	"strconv"

	"tvtime-service/internal/model"
	"tvtime-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// maxTrendingLimit caps ?limit= on the trending endpoint
const maxTrendingLimit = 50

// TrendingHandler serves the most searched terms
type TrendingHandler struct {
	recorder *service.TrendRecorder
}

// NewTrendingHandler creates a new TrendingHandler
func NewTrendingHandler(recorder *service.TrendRecorder) *TrendingHandler {
	return &TrendingHandler{recorder: recorder}
}

// GetTrending returns the top search terms with their representative movie
// GET /api/v1/trending?limit=5
func (h *TrendingHandler) GetTrending(c *gin.Context) {
	limit := service.DefaultTrendingLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTrendingLimit {
			badRequest(c, "limit must be between 1 and "+strconv.Itoa(maxTrendingLimit))
			return
		}
		limit = n
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: h.recorder.TopN(c.Request.Context(), limit),
	})
}

// ResetTrending clears every counter
// DELETE /api/v1/trending
func (h *TrendingHandler) ResetTrending(c *gin.Context) {
	if err := h.recorder.Reset(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to reset trend counters")
		c.JSON(http.StatusInternalServerError, model.APIResponse{
			Code:  500,
			Error: err.Error(),
		})
		return
	}

	log.Info().Msg("🗑️ Trend counters reset")
	c.JSON(http.StatusOK, model.APIResponse{
		Code:    200,
		Message: "所有热门搜索统计已重置",
	})
}
