package handler

import (
	"net/http"

	"tvtime-service/internal/model"
	"tvtime-service/internal/service"

	"github.com/gin-gonic/gin"
)

// HistoryHandler serves the recent search terms
type HistoryHandler struct {
	store *service.HistoryStore
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(store *service.HistoryStore) *HistoryHandler {
	return &HistoryHandler{store: store}
}

type historyRequest struct {
	Term string `json:"term"`
}

// GetHistory returns the terms, most recent first
// GET /api/v1/history
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: h.store.List(c.Request.Context()),
	})
}

// AddHistory records a submitted term; blank terms leave the list unchanged
// POST /api/v1/history
func (h *HistoryHandler) AddHistory(c *gin.Context) {
	var req historyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: h.store.Record(c.Request.Context(), req.Term),
	})
}

// DeleteHistoryTerm removes one term
// DELETE /api/v1/history/:term
func (h *HistoryHandler) DeleteHistoryTerm(c *gin.Context) {
	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: h.store.Remove(c.Request.Context(), c.Param("term")),
	})
}

// ClearHistory removes every term
// DELETE /api/v1/history
func (h *HistoryHandler) ClearHistory(c *gin.Context) {
	h.store.Clear(c.Request.Context())
	c.JSON(http.StatusOK, model.APIResponse{
		Code:    200,
		Data:    []string{},
		Message: "search history cleared",
	})
}
