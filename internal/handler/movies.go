package handler

import (
	"errors"
	"net/http"
	"strconv"

	"tvtime-service/internal/browse"
	"tvtime-service/internal/model"
	"tvtime-service/internal/service"
	"tvtime-service/pkg/httpclient"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// MoviesHandler serves stateless catalog reads
type MoviesHandler struct {
	catalog service.Catalog
	trends  *browse.TrendForwarder
}

// NewMoviesHandler creates a new MoviesHandler
func NewMoviesHandler(catalog service.Catalog, trends browse.Trends) *MoviesHandler {
	return &MoviesHandler{
		catalog: catalog,
		trends:  browse.NewTrendForwarder(trends),
	}
}

// Wait drains trend records still in flight
func (h *MoviesHandler) Wait() {
	h.trends.Wait()
}

// MoviePage is the list payload shared by the catalog and session endpoints
type MoviePage struct {
	Mode         model.Mode           `json:"mode"`
	Query        string               `json:"query,omitempty"`
	Sort         model.SortKey        `json:"sort"`
	Page         int                  `json:"page"`
	TotalPages   int                  `json:"total_pages"`
	DisplayTotal int                  `json:"display_total"`
	Results      []model.MovieSummary `json:"results"`
}

func newMoviePage(s browse.State) MoviePage {
	return MoviePage{
		Mode:         s.Mode,
		Query:        s.Query,
		Sort:         s.Sort,
		Page:         s.Page,
		TotalPages:   s.TotalPages,
		DisplayTotal: s.PageState().DisplayTotal(),
		Results:      s.Movies,
	}
}

// GetMovies searches when q is set, otherwise discovers by sort
// GET /api/v1/movies?q=batman&sort=popularity.desc&page=1
func (h *MoviesHandler) GetMovies(c *gin.Context) {
	rawSort := c.DefaultQuery("sort", string(model.DefaultSort))
	sort, ok := model.ParseSortKey(rawSort)
	if !ok {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:  400,
			Error: "invalid sort: " + rawSort,
		})
		return
	}

	page, ok := parsePage(c)
	if !ok {
		return
	}

	state, err := browse.FetchOnce(c.Request.Context(), h.catalog, h.trends, c.Query("q"), sort, page)
	if err != nil {
		upstreamError(c, err, browse.ErrorMessage)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:   200,
		Data:   newMoviePage(state),
		Source: "tmdb",
	})
}

// GetMovie returns the full record of one movie
// GET /api/v1/movies/:id
func (h *MoviesHandler) GetMovie(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:  400,
			Error: "invalid movie id",
		})
		return
	}

	detail, err := h.catalog.Details(c.Request.Context(), id)
	if err != nil {
		var reqErr *httpclient.RequestError
		if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound {
			c.JSON(http.StatusNotFound, model.APIResponse{
				Code:  404,
				Error: "movie not found",
			})
			return
		}
		upstreamError(c, err, "Error fetching movie details")
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:   200,
		Data:   detail,
		Source: "tmdb",
	})
}

// GetGenres returns the genre name table
// GET /api/v1/genres?language=zh-CN
func (h *MoviesHandler) GetGenres(c *gin.Context) {
	language := c.DefaultQuery("language", service.DefaultGenreLanguage)

	list, err := h.catalog.Genres(c.Request.Context(), language)
	if err != nil {
		upstreamError(c, err, "Error fetching genres")
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:   200,
		Data:   list.Genres,
		Source: "tmdb",
	})
}

// parsePage reads ?page=, defaulting to 1 and clamping to the catalog range.
// A non-numeric page writes a 400 and returns false.
func parsePage(c *gin.Context) (int, bool) {
	raw := c.Query("page")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:  400,
			Error: "invalid page: " + raw,
		})
		return 0, false
	}
	return model.ClampPage(page), true
}

// upstreamError maps a metadata service failure onto a response; the upstream
// body is logged, never echoed.
func upstreamError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, service.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, model.APIResponse{
			Code:  503,
			Error: "TMDB API key not configured",
		})
	case errors.Is(err, httpclient.ErrRequestAborted):
		// client went away; nothing useful to send
		c.Status(499)
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Metadata request failed")
		c.JSON(http.StatusBadGateway, model.APIResponse{
			Code:  502,
			Error: message,
		})
	}
}
