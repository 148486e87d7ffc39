package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"tvtime-service/internal/metrics"
	"tvtime-service/internal/model"
	"tvtime-service/pkg/httpclient"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// ErrNotConfigured is returned when no TMDB token is configured
var ErrNotConfigured = errors.New("TMDB API key not configured")

// DefaultGenreLanguage is the language the genre table is requested in
const DefaultGenreLanguage = "zh-CN"

// Catalog is the metadata service as the browse layer sees it
type Catalog interface {
	Discover(ctx context.Context, sort model.SortKey, page int) (*model.PagedMovies, error)
	Search(ctx context.Context, query string, page int) (*model.PagedMovies, error)
	Details(ctx context.Context, id int) (*model.MovieDetail, error)
	Genres(ctx context.Context, language string) (*model.GenreList, error)
}

// TMDBService handles TMDB API interactions with key rotation
type TMDBService struct {
	apiKeys    []string
	baseURL    string
	imageBase  string
	httpClient *httpclient.Client
	keyIndex   uint64 // 原子计数器，用于轮询
}

// NewTMDBService creates a new TMDBService with multiple API keys
func NewTMDBService(apiKeys []string, baseURL, imageBase string, client *httpclient.Client) *TMDBService {
	if len(apiKeys) > 0 {
		log.Info().Int("count", len(apiKeys)).Msg("🔑 TMDB API Keys 已配置，启用轮询模式")
	}
	if client == nil {
		client = httpclient.NewClient()
	}
	return &TMDBService{
		apiKeys:    apiKeys,
		baseURL:    baseURL,
		imageBase:  imageBase,
		httpClient: client,
	}
}

// getNextKey returns the next API key using round-robin
func (s *TMDBService) getNextKey() string {
	if len(s.apiKeys) == 0 {
		return ""
	}
	idx := atomic.AddUint64(&s.keyIndex, 1) - 1
	return s.apiKeys[idx%uint64(len(s.apiKeys))]
}

// Discover lists movies ordered by a sort key
// GET /discover/movie?sort_by=&page=
func (s *TMDBService) Discover(ctx context.Context, sort model.SortKey, page int) (*model.PagedMovies, error) {
	params := url.Values{}
	params.Set("sort_by", string(sort))
	params.Set("page", strconv.Itoa(page))

	var result model.PagedMovies
	if err := s.get(ctx, "discover", "/discover/movie", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search finds movies by title, ordered by relevance
// GET /search/movie?query=&page=
func (s *TMDBService) Search(ctx context.Context, query string, page int) (*model.PagedMovies, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))

	var result model.PagedMovies
	if err := s.get(ctx, "search", "/search/movie", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Details fetches one movie with credits and videos appended
// GET /movie/{id}?append_to_response=credits,videos
func (s *TMDBService) Details(ctx context.Context, id int) (*model.MovieDetail, error) {
	params := url.Values{}
	params.Set("append_to_response", "credits,videos")

	var result model.MovieDetail
	if err := s.get(ctx, "details", fmt.Sprintf("/movie/%d", id), params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Genres fetches the genre table in a language
// GET /genre/movie/list?language=
func (s *TMDBService) Genres(ctx context.Context, language string) (*model.GenreList, error) {
	if language == "" {
		language = DefaultGenreLanguage
	}
	params := url.Values{}
	params.Set("language", language)

	var result model.GenreList
	if err := s.get(ctx, "genres", "/genre/movie/list", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *TMDBService) get(ctx context.Context, endpoint, path string, params url.Values, dest interface{}) error {
	apiKey := s.getNextKey()
	if apiKey == "" {
		return ErrNotConfigured
	}

	target := s.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	start := time.Now()
	data, err := s.httpClient.Get(ctx, target, map[string]string{
		"Accept":        "application/json",
		"Authorization": fmt.Sprintf("Bearer %s", apiKey),
	})
	if err != nil {
		outcome := "failed"
		if errors.Is(err, httpclient.ErrRequestAborted) {
			outcome = "aborted"
		}
		metrics.RecordMetadataRequest(endpoint, outcome, time.Since(start))
		return fmt.Errorf("TMDB %s: %w", endpoint, err)
	}
	metrics.RecordMetadataRequest(endpoint, "ok", time.Since(start))

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse TMDB %s response: %w", endpoint, err)
	}

	log.Debug().Str("endpoint", endpoint).Dur("latency", time.Since(start)).Msg("TMDB: ok")
	return nil
}

// PosterURL builds an image URL from a poster path
func (s *TMDBService) PosterURL(posterPath *string) string {
	if posterPath == nil || *posterPath == "" {
		return ""
	}
	return s.imageBase + *posterPath
}

// IsConfigured returns true if TMDB is configured
func (s *TMDBService) IsConfigured() bool {
	return len(s.apiKeys) > 0
}

// KeyCount returns the number of configured API keys
func (s *TMDBService) KeyCount() int {
	return len(s.apiKeys)
}

// RateLimited reports whether outbound calls are throttled
func (s *TMDBService) RateLimited() bool {
	return s.httpClient.HasRateLimit()
}
