package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"tvtime-service/internal/model"
	"tvtime-service/pkg/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	path  string
	query map[string]string
	auth  string
}

func newFakeTMDB(t *testing.T, status int, body string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	reqs := []recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		mu.Lock()
		reqs = append(reqs, recordedRequest{path: r.URL.Path, query: q, auth: r.Header.Get("Authorization")})
		mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestTMDBService_Discover(t *testing.T) {
	srv, reqs := newFakeTMDB(t, http.StatusOK, `{
		"page": 3,
		"total_pages": 42,
		"total_results": 830,
		"results": [{"id": 27205, "title": "Inception", "poster_path": "/inception.jpg", "vote_average": 8.4, "release_date": "2010-07-15", "original_language": "en", "genre_ids": [28, 878]}]
	}`)

	svc := NewTMDBService([]string{"key-a"}, srv.URL, "https://image.tmdb.org/t/p/w500", nil)
	page, err := svc.Discover(context.Background(), model.SortRating, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 42, page.TotalPages)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Inception", page.Results[0].Title)
	assert.Equal(t, []int{28, 878}, page.Results[0].GenreIDs)
	require.NotNil(t, page.Results[0].ReleaseDate)
	assert.Equal(t, "2010-07-15", *page.Results[0].ReleaseDate)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, "/discover/movie", req.path)
	assert.Equal(t, "vote_average.desc", req.query["sort_by"])
	assert.Equal(t, "3", req.query["page"])
	assert.Equal(t, "Bearer key-a", req.auth)
}

func TestTMDBService_SearchEscapesQuery(t *testing.T) {
	srv, reqs := newFakeTMDB(t, http.StatusOK, `{"page":1,"total_pages":1,"results":[]}`)

	svc := NewTMDBService([]string{"key-a"}, srv.URL, "", nil)
	_, err := svc.Search(context.Background(), "the dark knight & co", 1)
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	assert.Equal(t, "/search/movie", (*reqs)[0].path)
	assert.Equal(t, "the dark knight & co", (*reqs)[0].query["query"])
}

func TestTMDBService_DetailsAndGenres(t *testing.T) {
	srv, reqs := newFakeTMDB(t, http.StatusOK, `{
		"id": 155, "title": "The Dark Knight", "runtime": 152, "budget": 185000000,
		"revenue": 1004558444, "overview": "Batman raises the stakes",
		"genres": [{"id": 18, "name": "剧情"}],
		"production_companies": [{"id": 9993, "name": "DC Entertainment"}],
		"credits": {"cast": [{"id": 3894, "name": "Christian Bale", "character": "Bruce Wayne"}]},
		"videos": {"results": [{"key": "EXeTwQWrcwY", "site": "YouTube", "type": "Trailer"}]}
	}`)

	svc := NewTMDBService([]string{"key-a"}, srv.URL, "", nil)
	detail, err := svc.Details(context.Background(), 155)
	require.NoError(t, err)
	assert.Equal(t, 155, detail.ID)
	assert.Equal(t, 152, detail.Runtime)
	assert.Equal(t, int64(1004558444), detail.Revenue)
	require.NotNil(t, detail.Credits)
	assert.Equal(t, "Christian Bale", detail.Credits.Cast[0].Name)
	assert.Equal(t, "/movie/155", (*reqs)[0].path)
	assert.Equal(t, "credits,videos", (*reqs)[0].query["append_to_response"])

	_, err = svc.Genres(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "/genre/movie/list", (*reqs)[1].path)
	assert.Equal(t, "zh-CN", (*reqs)[1].query["language"])
}

func TestTMDBService_RequestFailedCarriesStatusAndBody(t *testing.T) {
	srv, _ := newFakeTMDB(t, http.StatusUnauthorized, `{"status_message":"Invalid API key"}`)

	svc := NewTMDBService([]string{"bad"}, srv.URL, "", nil)
	_, err := svc.Search(context.Background(), "batman", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpclient.ErrRequestFailed))

	var reqErr *httpclient.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
	assert.Contains(t, reqErr.Body, "Invalid API key")
}

func TestTMDBService_CancelledIsAborted(t *testing.T) {
	srv, _ := newFakeTMDB(t, http.StatusOK, `{}`)

	svc := NewTMDBService([]string{"key"}, srv.URL, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Discover(ctx, model.SortPopularity, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpclient.ErrRequestAborted))
}

func TestTMDBService_KeyRotation(t *testing.T) {
	srv, reqs := newFakeTMDB(t, http.StatusOK, `{"genres":[]}`)

	svc := NewTMDBService([]string{"k1", "k2"}, srv.URL, "", nil)
	for i := 0; i < 3; i++ {
		_, err := svc.Genres(context.Background(), "en-US")
		require.NoError(t, err)
	}

	assert.Equal(t, "Bearer k1", (*reqs)[0].auth)
	assert.Equal(t, "Bearer k2", (*reqs)[1].auth)
	assert.Equal(t, "Bearer k1", (*reqs)[2].auth)
}

func TestTMDBService_NotConfigured(t *testing.T) {
	svc := NewTMDBService(nil, "http://127.0.0.1:0", "", nil)
	assert.False(t, svc.IsConfigured())

	_, err := svc.Discover(context.Background(), model.SortPopularity, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestTMDBService_PosterURL(t *testing.T) {
	svc := NewTMDBService(nil, "", "https://image.tmdb.org/t/p/w500", nil)
	poster := "/x.jpg"
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/x.jpg", svc.PosterURL(&poster))
	assert.Equal(t, "", svc.PosterURL(nil))
}
