package handler

import (
	"net/http"
	"time"

	"tvtime-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every handler the router mounts
type Handlers struct {
	Movies    *MoviesHandler
	Sessions  *SessionsHandler
	Favorites *FavoritesHandler
	History   *HistoryHandler
	Trending  *TrendingHandler
	Admin     *AdminHandler
}

// NewRouter builds the gin engine with middleware and all routes
func NewRouter(h Handlers, adminAPIKey string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.User())
	r.Use(middleware.Logging())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes - 公开访问
	api := r.Group("/api/v1")
	{
		api.GET("/status", h.Admin.GetStatus)

		api.GET("/movies", h.Movies.GetMovies)
		api.GET("/movies/:id", h.Movies.GetMovie)
		api.GET("/genres", h.Movies.GetGenres)

		api.POST("/sessions", h.Sessions.CreateSession)
		api.GET("/sessions/:id", h.Sessions.GetSession)
		api.PUT("/sessions/:id/query", h.Sessions.SetQuery)
		api.PUT("/sessions/:id/sort", h.Sessions.SetSort)
		api.PUT("/sessions/:id/page", h.Sessions.SetPage)
		api.POST("/sessions/:id/refresh", h.Sessions.Refresh)
		api.POST("/sessions/:id/detail/:movieId", h.Sessions.OpenDetail)
		api.DELETE("/sessions/:id/detail", h.Sessions.CloseDetail)
		api.DELETE("/sessions/:id", h.Sessions.DeleteSession)

		api.GET("/favorites", h.Favorites.GetFavorites)
		api.POST("/favorites/toggle", h.Favorites.ToggleFavorite)
		api.GET("/favorites/:id", h.Favorites.GetFavorite)

		api.GET("/history", h.History.GetHistory)
		api.POST("/history", h.History.AddHistory)
		api.DELETE("/history/:term", h.History.DeleteHistoryTerm)
		api.DELETE("/history", h.History.ClearHistory)

		api.GET("/trending", h.Trending.GetTrending)
	}

	// Admin routes - 需要认证（如果配置了 ADMIN_API_KEY）
	admin := r.Group("/api/v1")
	admin.Use(middleware.AdminAuth(adminAPIKey))
	{
		admin.DELETE("/trending", h.Trending.ResetTrending)
	}

	return r
}
