package handler

import (
	"net/http"
	"strconv"

	"tvtime-service/internal/browse"
	"tvtime-service/internal/model"

	"github.com/gin-gonic/gin"
)

// SessionsHandler exposes browse sessions over HTTP
type SessionsHandler struct {
	registry *browse.Registry
}

// NewSessionsHandler creates a new SessionsHandler
func NewSessionsHandler(registry *browse.Registry) *SessionsHandler {
	return &SessionsHandler{registry: registry}
}

// SessionView is a session snapshot as returned to clients
type SessionView struct {
	ID         string               `json:"id"`
	Input      string               `json:"input"`
	Loading    bool                 `json:"loading"`
	Error      string               `json:"error,omitempty"`
	List       MoviePage            `json:"list"`
	Detail     browse.DetailView    `json:"detail"`
	Genres     map[int]string       `json:"genres,omitempty"`
	Trending   []model.TrendCounter `json:"trending"`
	Generation uint64               `json:"generation"`
}

func newSessionView(id string, s browse.State) SessionView {
	return SessionView{
		ID:         id,
		Input:      s.Input,
		Loading:    s.Loading,
		Error:      s.Error,
		List:       newMoviePage(s),
		Detail:     s.Detail,
		Genres:     s.Genres,
		Trending:   s.Trending,
		Generation: s.Generation,
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

type sortRequest struct {
	Sort string `json:"sort" binding:"required"`
}

type pageRequest struct {
	Page int `json:"page"`
}

// CreateSession starts a session with the initial discover fetch in flight
// POST /api/v1/sessions
func (h *SessionsHandler) CreateSession(c *gin.Context) {
	id, orch, err := h.registry.Create()
	if err != nil {
		c.JSON(http.StatusTooManyRequests, model.APIResponse{
			Code:  429,
			Error: err.Error(),
		})
		return
	}
	c.Header("Location", "/api/v1/sessions/"+id)
	c.JSON(http.StatusCreated, model.APIResponse{
		Code: 201,
		Data: newSessionView(id, orch.State()),
	})
}

// GetSession returns the current snapshot
// GET /api/v1/sessions/:id
func (h *SessionsHandler) GetSession(c *gin.Context) {
	id, orch, ok := h.lookup(c)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, id, orch)
}

// SetQuery feeds search box text; the fetch follows after the debounce window
// PUT /api/v1/sessions/:id/query
func (h *SessionsHandler) SetQuery(c *gin.Context) {
	id, orch, ok := h.lookup(c)
	if !ok {
		return
	}
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	orch.SetQuery(req.Query)
	h.respond(c, http.StatusAccepted, id, orch)
}

// SetSort switches the discover ordering
// PUT /api/v1/sessions/:id/sort
func (h *SessionsHandler) SetSort(c *gin.Context) {
	id, orch, ok := h.lookup(c)
	if !ok {
		return
	}
	var req sortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	sort, valid := model.ParseSortKey(req.Sort)
	if !valid {
		badRequest(c, "invalid sort: "+req.Sort)
		return
	}
	orch.SetSort(sort)
	h.respond(c, http.StatusAccepted, id, orch)
}

// SetPage jumps to a page; out-of-range pages are clamped
// PUT /api/v1/sessions/:id/page
func (h *SessionsHandler) SetPage(c *gin.Context) {
	id, orch, ok := h.lookup(c)
	if !ok {
		return
	}
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	orch.SetPage(req.Page)
	h.respond(c, http.StatusAccepted, id, orch)
}

// Refresh re-issues the current fetch
// POST /api/v1/sessions/:id/refresh
func (h *SessionsHandler) Refresh(c *gin.Context) {
	id, orch, ok := h.lookup(c)
	if !ok {
		return
	}
	orch.Refresh()
	h.respond(c, http.StatusAccepted, id, orch)
}

// OpenDetail opens the detail view for a movie on the current page.
// A movie not on the page opens with only its id until the details arrive.
// POST /api/v1/sessions/:id/detail/:movieId
func (h *SessionsHandler) OpenDetail(c *gin.Context) {
	id, orch, ok := h.lookup(c)
	if !ok {
		return
	}
	movieID, err := strconv.Atoi(c.Param("movieId"))
	if err != nil || movieID <= 0 {
		badRequest(c, "invalid movie id")
		return
	}

	summary := model.MovieSummary{ID: movieID}
	for _, m := range orch.State().Movies {
		if m.ID == movieID {
			summary = m
			break
		}
	}
	orch.OpenDetail(summary)
	h.respond(c, http.StatusAccepted, id, orch)
}

// CloseDetail hides the detail view
// DELETE /api/v1/sessions/:id/detail
func (h *SessionsHandler) CloseDetail(c *gin.Context) {
	id, orch, ok := h.lookup(c)
	if !ok {
		return
	}
	orch.CloseDetail()
	h.respond(c, http.StatusAccepted, id, orch)
}

// DeleteSession ends a session
// DELETE /api/v1/sessions/:id
func (h *SessionsHandler) DeleteSession(c *gin.Context) {
	if !h.registry.Delete(c.Param("id")) {
		notFound(c, "session not found")
		return
	}
	c.JSON(http.StatusOK, model.APIResponse{
		Code:    200,
		Message: "session closed",
	})
}

func (h *SessionsHandler) lookup(c *gin.Context) (string, *browse.Orchestrator, bool) {
	id := c.Param("id")
	orch, ok := h.registry.Get(id)
	if !ok {
		notFound(c, "session not found")
		return "", nil, false
	}
	return id, orch, true
}

// respond returns the snapshot as of now; transitions posted by this request
// may not have been applied yet, so clients poll GET for the settled state.
func (h *SessionsHandler) respond(c *gin.Context, status int, id string, orch *browse.Orchestrator) {
	c.JSON(status, model.APIResponse{
		Code: status,
		Data: newSessionView(id, orch.State()),
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, model.APIResponse{
		Code:  400,
		Error: message,
	})
}

func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, model.APIResponse{
		Code:  404,
		Error: message,
	})
}
