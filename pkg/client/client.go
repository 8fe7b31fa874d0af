// Package client provides the HTTP client for paged WooCommerce REST
// collections.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/ArtemZhigarev/woo-lister/pkg/credentials"
	"github.com/ArtemZhigarev/woo-lister/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// SystemStatusPath is requested by Ping to verify endpoint and keys.
const SystemStatusPath = "wp-json/wc/v3/system_status"

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// Prometheus metrics for store requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "woo_requests_total",
		Help: "Total store requests by resource and status",
	}, []string{"resource", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "woo_request_duration_seconds",
		Help:    "Store request duration in seconds by resource",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"resource"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "woo_errors_total",
		Help: "Total store request errors by class",
	}, []string{"class"})
)

// Client performs single GET round trips against a store.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// UserAgent header sent with every request.
	UserAgent string

	// Timeout bounds one round trip (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64

	// Burst is the throttle bucket size (default: 1).
	Burst int

	// HTTPClient overrides the transport (for testing). Timeout is ignored when set.
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative (got %s)", cfg.Timeout)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests_per_second must not be negative (got %v)", cfg.RequestsPerSecond)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	return &Client{
		httpClient: httpClient,
		limiter:    limiter,
		config:     cfg,
		logger:     log.With().Str("component", "woo-client").Logger(),
	}, nil
}

// FetchPage requests one page of resourcePath and returns the raw items.
// The filter is sent as filterParam only when both are non-empty.
func (c *Client) FetchPage(ctx context.Context, creds credentials.Credentials, resourcePath string, req pagination.PageRequest, filterParam string) ([]json.RawMessage, error) {
	resource := path.Base(resourcePath)

	if req.Page < 1 {
		return nil, &FetchError{
			Class:   ErrorClassClient,
			Message: fmt.Sprintf("Invalid page number %d", req.Page),
		}
	}
	perPage := req.PerPage
	if perPage < 1 {
		perPage = pagination.PageSize
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(req.Page))
	query.Set("per_page", strconv.Itoa(perPage))
	if filterParam != "" && req.Filter != "" {
		query.Set(filterParam, req.Filter)
	}

	target, err := buildURL(creds.BaseURL, resourcePath, query)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, creds, target, resource)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		c.logger.Warn().
			Err(err).
			Str("resource", resource).
			Int("page", req.Page).
			Msg("Response is not a JSON array")
		return nil, &FetchError{
			StatusCode: http.StatusOK,
			Class:      ErrorClassDecode,
			Message:    fmt.Sprintf("Unexpected response from the store: %v", err),
			Err:        err,
		}
	}

	// A literal null decodes without error; an empty page is always [].
	if items == nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		c.logger.Warn().
			Str("resource", resource).
			Int("page", req.Page).
			Msg("Response body is null")
		return nil, &FetchError{
			StatusCode: http.StatusOK,
			Class:      ErrorClassDecode,
			Message:    "Unexpected response from the store: expected a list, got null",
		}
	}

	c.logger.Debug().
		Str("resource", resource).
		Int("page", req.Page).
		Int("items", len(items)).
		Msg("Page fetched")

	return items, nil
}

// Ping verifies that the endpoint is reachable and accepts the keys.
func (c *Client) Ping(ctx context.Context, creds credentials.Credentials) error {
	target, err := buildURL(creds.BaseURL, SystemStatusPath, nil)
	if err != nil {
		return err
	}

	if _, err := c.get(ctx, creds, target, path.Base(SystemStatusPath)); err != nil {
		return err
	}

	c.logger.Info().Str("endpoint", creds.BaseURL).Msg("Store connection verified")
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// get performs one authenticated GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, creds credentials.Credentials, target, resource string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(resource, "throttled").Inc()
			return nil, &FetchError{Class: ErrorClassNetwork, Message: err.Error(), Err: err}
		}
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(resource).Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{
			Class:   ErrorClassClient,
			Message: err.Error(),
			Err:     fmt.Errorf("create request: %w", err),
		}
	}

	req.SetBasicAuth(creds.Username, creds.Password)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("resource", resource).
		Str("url", target).
		Msg("Executing store request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(resource, "network_error").Inc()
		c.logger.Error().Err(err).Str("resource", resource).Msg("HTTP request failed")
		return nil, &FetchError{Class: ErrorClassNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(resource, "network_error").Inc()
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			Message:    err.Error(),
			Err:        fmt.Errorf("read body: %w", err),
		}
	}

	requestsTotal.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("resource", resource).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Store request error")
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    statusMessage(resp.StatusCode, body),
		}
	}

	return body, nil
}

// buildURL joins resourcePath onto base, keeping any subdirectory the store is
// installed under.
func buildURL(base, resourcePath string, query url.Values) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || u.Scheme == "" || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing scheme or host")
		}
		return "", &FetchError{
			Class:   ErrorClassClient,
			Message: fmt.Sprintf("Invalid endpoint URL %q", base),
			Err:     fmt.Errorf("%w: %v", ErrInvalidBaseURL, err),
		}
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(resourcePath, "/")
	u.RawPath = ""
	u.RawQuery = query.Encode()
	u.Fragment = ""

	return u.String(), nil
}
