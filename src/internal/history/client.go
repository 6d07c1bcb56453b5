// FILE: adminfeed/src/internal/history/client.go
package history

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"adminfeed/src/internal/auth"
	"adminfeed/src/internal/config"
	"adminfeed/src/internal/core"
	"adminfeed/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fastjson"
)

// ErrRequest marks a request the server rejected with a 4xx status; it is not retried
var ErrRequest = errors.New("request rejected")

// Client talks to the admin backend's historical query and export API
type Client struct {
	config  *config.HistoryConfig
	client  *fasthttp.Client
	tokens  auth.TokenSource
	parsers fastjson.ParserPool
	logger  *log.Logger

	// Statistics
	totalRequests  atomic.Uint64
	failedRequests atomic.Uint64
	totalRetries   atomic.Uint64
	skippedRows    atomic.Uint64
	lastRequest    atomic.Value // time.Time
}

// New creates a history client; tokens may be nil for unauthenticated backends
func New(cfg *config.HistoryConfig, tokens auth.TokenSource, logger *log.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("history config cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("history base_url required")
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	c := &Client{
		config: cfg,
		tokens: tokens,
		logger: logger,
		client: &fasthttp.Client{
			MaxConnsPerHost:               10,
			MaxIdleConnDuration:           10 * time.Second,
			ReadTimeout:                   timeout,
			WriteTimeout:                  timeout,
			DisableHeaderNamesNormalizing: true,
		},
	}
	c.lastRequest.Store(time.Time{})

	return c, nil
}

// SetTLSConfig installs a custom TLS configuration for https:// base URLs; nil keeps the system defaults
func (c *Client) SetTLSConfig(tlsConfig *tls.Config) {
	if tlsConfig == nil {
		return
	}
	if !strings.HasPrefix(c.config.BaseURL, "https://") {
		c.logger.Warn("msg", "TLS configured but history base_url is not https",
			"component", "history",
			"base_url", c.config.BaseURL)
		return
	}
	c.client.TLSConfig = tlsConfig
}

// Endpoint binds the client to one feed's query and export paths
func (c *Client) Endpoint(queryPath, exportPath string) *Endpoint {
	return &Endpoint{client: c, queryPath: queryPath, exportPath: exportPath}
}

// EndpointFor binds the client to a configured feed
func (c *Client) EndpointFor(feed *config.FeedConfig) *Endpoint {
	return c.Endpoint(feed.QueryPath, feed.ExportPath)
}

// get performs a GET with retries and returns a copy of the 2xx response body
func (c *Client) get(ctx context.Context, path string, args map[string]string) ([]byte, error) {
	timeout := time.Duration(c.config.TimeoutMS) * time.Millisecond
	retryDelay := time.Duration(c.config.RetryDelayMS) * time.Millisecond

	var lastErr error
	for attempt := int64(0); attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.totalRetries.Add(1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}

			// Capped exponential backoff
			newDelay := time.Duration(float64(retryDelay) * c.config.RetryBackoff)
			if newDelay > timeout || newDelay < retryDelay {
				retryDelay = timeout
			} else {
				retryDelay = newDelay
			}
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, status, err := c.do(ctx, path, args, timeout)
		if err != nil {
			if errors.Is(err, auth.ErrNoToken) || ctx.Err() != nil {
				c.failedRequests.Add(1)
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			c.logger.Warn("msg", "History request failed",
				"component", "history",
				"path", path,
				"attempt", attempt+1,
				"max_retries", c.config.MaxRetries,
				"error", err)
			continue
		}

		if status >= 200 && status < 300 {
			c.logger.Debug("msg", "History request succeeded",
				"component", "history",
				"path", path,
				"status_code", status,
				"bytes", len(body),
				"attempt", attempt+1)
			return body, nil
		}

		lastErr = fmt.Errorf("server returned status %d: %s", status, truncate(body, 256))

		// Client errors are not retried
		if status >= 400 && status < 500 {
			c.failedRequests.Add(1)
			c.logger.Error("msg", "History request rejected",
				"component", "history",
				"path", path,
				"status_code", status,
				"response", truncate(body, 256))
			return nil, fmt.Errorf("%w: %v", ErrRequest, lastErr)
		}

		c.logger.Warn("msg", "History server returned error status",
			"component", "history",
			"path", path,
			"attempt", attempt+1,
			"status_code", status)
	}

	c.failedRequests.Add(1)
	c.logger.Error("msg", "History request failed after all retries",
		"component", "history",
		"path", path,
		"retries", c.config.MaxRetries,
		"last_error", lastErr)
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, path string, args map[string]string, timeout time.Duration) ([]byte, int, error) {
	var token string
	if c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("history credential: %w", err)
		}
		token = t
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(strings.TrimRight(c.config.BaseURL, "/") + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	q := req.URI().QueryArgs()
	for k, v := range args {
		q.Set(k, v)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.totalRequests.Add(1)
	c.lastRequest.Store(time.Now())
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, 0, err
	}

	// Copy before the response is released
	body := append([]byte(nil), resp.Body()...)
	return body, resp.StatusCode(), nil
}

// queryArgs maps a query onto the backend's parameter names
func queryArgs(q core.Query) map[string]string {
	args := make(map[string]string, 6)
	if q.Category != "" {
		args["category"] = q.Category
	}
	if q.Search != "" {
		args["search"] = q.Search
	}
	if !q.Start.IsZero() {
		args["startTime"] = q.Start.UTC().Format(time.RFC3339)
	}
	if !q.End.IsZero() {
		args["endTime"] = q.End.UTC().Format(time.RFC3339)
	}
	if q.Limit > 0 {
		args["limit"] = strconv.Itoa(q.Limit)
	}
	if q.Offset > 0 {
		args["offset"] = strconv.Itoa(q.Offset)
	}
	return args
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// GetStats returns client statistics
func (c *Client) GetStats() map[string]any {
	lastReq, _ := c.lastRequest.Load().(time.Time)
	return map[string]any{
		"base_url":        c.config.BaseURL,
		"total_requests":  c.totalRequests.Load(),
		"failed_requests": c.failedRequests.Load(),
		"total_retries":   c.totalRetries.Load(),
		"skipped_rows":    c.skippedRows.Load(),
		"last_request":    lastReq,
	}
}
