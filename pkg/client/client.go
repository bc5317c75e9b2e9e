// Package client provides the HTTP client used to fetch OpenFEMA pages,
// with error classification, metrics, and an optional Redis page cache.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mcaveniathor/fema-web-declaration/pkg/cache"
	"github.com/mcaveniathor/fema-web-declaration/pkg/logging"
)

// Prometheus metrics for OpenFEMA requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fema_requests_total",
		Help: "Total OpenFEMA requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fema_request_duration_seconds",
		Help:    "OpenFEMA request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fema_errors_total",
		Help: "Total OpenFEMA errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// UserAgent identifies the application to the API.
	UserAgent string

	// Timeout bounds each request, network round trip included.
	Timeout time.Duration

	// Redis, when set, enables the page cache.
	Redis *redis.Client

	// CacheTTL is the lifetime of cached pages. Only consulted when Redis
	// is set.
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration. The page cache is
// disabled until a Redis client is supplied.
func DefaultConfig() Config {
	return Config{
		UserAgent: "fema-web-declaration/0.1.0",
		Timeout:   30 * time.Second,
		CacheTTL:  6 * time.Hour,
	}
}

// Client fetches OpenFEMA pages over HTTP.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// New creates a new OpenFEMA client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var pageCache *cache.Manager
	if cfg.Redis != nil {
		var err error
		pageCache, err = cache.NewManager(cfg.Redis, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("create page cache: %w", err)
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  pageCache,
		config: cfg,
		logger: logging.NewLogger("openfema-client"),
	}, nil
}

// Get fetches url and returns the response body. Any transport failure or
// non-2xx status is an error; there are no retries, the caller aborts the
// whole run on the first failure.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(startTime).Seconds())
	}()

	if c.cache != nil {
		key := cache.Key{URL: url}
		body, err := c.cache.Get(ctx, key)
		if err == nil {
			c.logger.Debug().Str("url", url).Msg("Page cache hit")
			return body, nil
		}
		if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("url", url).Msg("Cache get error")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", url).Msg("Executing OpenFEMA request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("url", url).Msg("HTTP request failed")
		return nil, &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("url", url).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("OpenFEMA request error")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{ErrorClass: ErrorClassNetwork, Message: "read response body", Err: err}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cache.Key{URL: url}, body); err != nil {
			c.logger.Warn().Err(err).Str("url", url).Msg("Failed to cache page")
		}
	}

	return body, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
