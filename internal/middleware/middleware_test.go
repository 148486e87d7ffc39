package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAdminRouter(key string) *gin.Engine {
	r := gin.New()
	r.DELETE("/api/v1/trending", AdminAuth(key), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		query  string
		want   int
	}{
		{"disabled", "", "", "", http.StatusNoContent},
		{"missing", "secret", "", "", http.StatusUnauthorized},
		{"bearer", "secret", "Bearer secret", "", http.StatusNoContent},
		{"apikey", "secret", "ApiKey secret", "", http.StatusNoContent},
		{"query", "secret", "", "secret", http.StatusNoContent},
		{"wrong", "secret", "Bearer nope", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/v1/trending"
			if tt.query != "" {
				target += "?api_key=" + tt.query
			}
			req := httptest.NewRequest(http.MethodDelete, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newAdminRouter(tt.key).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestUser(t *testing.T) {
	r := gin.New()
	r.Use(User())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(UserHeader, " alice ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "alice", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Empty(t, w.Body.String())
}

func TestEndpointLabelUsesRouteTemplate(t *testing.T) {
	var label string
	r := gin.New()
	r.GET("/api/v1/movies/:id", func(c *gin.Context) {
		label = endpointLabel(c)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/movies/268", nil))
	assert.Equal(t, "/api/v1/movies/:id", label)
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   zerolog.Level
	}{
		{"/api/v1/movies", http.StatusOK, zerolog.InfoLevel},
		{"/health", http.StatusOK, zerolog.DebugLevel},
		{"/metrics", http.StatusOK, zerolog.DebugLevel},
		{"/health", http.StatusServiceUnavailable, zerolog.ErrorLevel},
		{"/api/v1/sessions/x", http.StatusNotFound, zerolog.WarnLevel},
		{"/api/v1/movies", http.StatusBadGateway, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, requestLevel(tt.path, tt.status), "%s %d", tt.path, tt.status)
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.InfoLevel)
	t.Cleanup(func() { log.Logger = prev })

	r := gin.New()
	r.Use(User(), Logging())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/movies/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Zero(t, buf.Len(), "healthy probes log below info")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/movies/42?lang=zh", nil)
	req.Header.Set(UserHeader, "alice")
	r.ServeHTTP(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "request", entry["message"])
	assert.EqualValues(t, 404, entry["status"])
	assert.Equal(t, "/api/v1/movies/42", entry["path"])
	assert.Equal(t, "/api/v1/movies/:id", entry["route"])
	assert.Equal(t, "lang=zh", entry["query"])
	assert.Equal(t, "alice", entry["user"])
}

func TestCORS_PreflightAllowsUserHeader(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.POST("/api/v1/sessions", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "https://tvtime.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", UserHeader)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), strings.ToLower(UserHeader))
}
