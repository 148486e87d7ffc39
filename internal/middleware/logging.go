package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// probePaths are polled by orchestrators and scrapers; healthy hits stay at debug
var probePaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// requestLevel picks the log level for a finished request
func requestLevel(path string, status int) zerolog.Level {
	switch {
	case status >= 500:
		return zerolog.ErrorLevel
	case status >= 400:
		return zerolog.WarnLevel
	case probePaths[path]:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logging returns a logging middleware
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		event := log.WithLevel(requestLevel(path, status)).
			Int("status", status).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("user", UserID(c))
		if route := c.FullPath(); route != "" && route != path {
			event = event.Str("route", route)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.Msg("request")
	}
}
