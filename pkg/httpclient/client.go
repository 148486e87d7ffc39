package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of a failed response body is kept on RequestError
const maxErrorBody = 4 << 10

var (
	// ErrRequestFailed matches any non-2xx response or transport failure
	ErrRequestFailed = errors.New("request failed")
	// ErrRequestAborted is returned when the caller cancels the request
	ErrRequestAborted = errors.New("request aborted")
	// ErrRequestTimeout is returned when the per-request deadline expires
	ErrRequestTimeout = fmt.Errorf("%w: timeout", ErrRequestFailed)
)

// RequestError carries the status and body of a non-2xx response
type RequestError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *RequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed: HTTP %d %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrRequestFailed) match a RequestError
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// Client is a cancellable JSON GET client. It never retries.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
}

// Option configures a Client
type Option func(*Client)

// WithTimeout bounds every request; zero disables the bound
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRateLimit caps outbound requests per second; zero or less disables it
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHTTPClient swaps the underlying http.Client (tests use httptest clients)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new HTTP client
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET with the given headers and returns the body of a 2xx response
func (c *Client) Get(ctx context.Context, targetURL string, headers map[string]string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, classify(ctx, err)
		}
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = classify(ctx, err)
		if !errors.Is(err, ErrRequestAborted) {
			log.Warn().Err(err).Str("url", targetURL).Msg("Request failed")
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Warn().
			Int("status", resp.StatusCode).
			Str("url", targetURL).
			Msg("Request returned non-2xx status")
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			URL:        targetURL,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, err)
	}
	return body, nil
}

// classify maps a transport error onto the client's taxonomy. The parent
// context decides between abort (caller cancelled) and timeout.
func classify(parent context.Context, err error) error {
	if parent.Err() != nil && errors.Is(parent.Err(), context.Canceled) {
		return fmt.Errorf("%w: %v", ErrRequestAborted, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || parent.Err() != nil {
		return fmt.Errorf("%w: %v", ErrRequestTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}

// HasRateLimit returns true if an outbound limiter is configured
func (c *Client) HasRateLimit() bool {
	return c.limiter != nil
}
