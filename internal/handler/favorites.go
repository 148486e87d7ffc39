package handler

import (
	"net/http"
	"strconv"

	"tvtime-service/internal/middleware"
	"tvtime-service/internal/model"
	"tvtime-service/internal/service"

	"github.com/gin-gonic/gin"
)

// FavoritesHandler serves the per-user favorites list
type FavoritesHandler struct {
	store *service.FavoritesStore
}

// NewFavoritesHandler creates a new FavoritesHandler
func NewFavoritesHandler(store *service.FavoritesStore) *FavoritesHandler {
	return &FavoritesHandler{store: store}
}

// GetFavorites returns one page of favorites, newest first
// GET /api/v1/favorites?page=1
func (h *FavoritesHandler) GetFavorites(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid page: "+raw)
			return
		}
		page = p
	}

	ctx := c.Request.Context()
	user := middleware.UserID(c)
	count := h.store.Count(ctx, user)

	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: gin.H{
			"page":        page,
			"page_size":   model.FavoritesPageSize,
			"total_pages": service.PageCount(count, model.FavoritesPageSize),
			"count":       count,
			"results":     h.store.List(ctx, user, page, model.FavoritesPageSize),
		},
	})
}

// ToggleFavorite adds the movie, or removes it when already present
// POST /api/v1/favorites/toggle
func (h *FavoritesHandler) ToggleFavorite(c *gin.Context) {
	var movie model.MovieSummary
	if err := c.ShouldBindJSON(&movie); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	if movie.ID <= 0 {
		badRequest(c, "movie id is required")
		return
	}

	ctx := c.Request.Context()
	user := middleware.UserID(c)
	added := h.store.Toggle(ctx, user, movie)

	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: gin.H{
			"id":       movie.ID,
			"favorite": added,
			"count":    h.store.Count(ctx, user),
		},
	})
}

// GetFavorite reports whether a movie is a favorite
// GET /api/v1/favorites/:id
func (h *FavoritesHandler) GetFavorite(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, "invalid movie id")
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: gin.H{
			"id":       id,
			"favorite": h.store.Contains(c.Request.Context(), middleware.UserID(c), id),
		},
	})
}
