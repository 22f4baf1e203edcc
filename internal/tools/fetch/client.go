// Package fetch provides the web tools: scrape_web, download_file, http_request,
// web_search and get_weather.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aatumaykin/microbot/internal/config"
	"github.com/aatumaykin/microbot/internal/logger"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxBytes = 5 * 1024 * 1024
	maxTimeoutSecs  = 120
)

// Client performs size-limited HTTP requests for the web tools.
type Client struct {
	http      *http.Client
	userAgent string
	maxBytes  int64
	logger    *logger.Logger
}

// NewClient creates a Client from the fetch tool config.
func NewClient(cfg config.FetchToolConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBytes := cfg.MaxResponseSize
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		logger:    log,
	}
}

// Response is a fully read HTTP response.
type Response struct {
	Status      int
	StatusText  string
	ContentType string
	Header      http.Header
	Body        []byte
}

// Do sends req and reads at most maxBytes of the body.
func (c *Client) Do(req *http.Request) (*Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("response too large: %d bytes exceeds %d bytes limit", resp.ContentLength, c.maxBytes)
	}

	// one extra byte tells a body at the limit from a truncated one
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("response truncated: exceeds %d bytes limit", c.maxBytes)
	}

	c.logger.Debug("http request done",
		logger.Field{Key: "url", Value: req.URL.String()},
		logger.Field{Key: "status", Value: resp.StatusCode},
		logger.Field{Key: "bytes", Value: len(body)})

	return &Response{
		Status:      resp.StatusCode,
		StatusText:  resp.Status,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header,
		Body:        body,
	}, nil
}

// Get fetches rawURL and fails on non-2xx statuses.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	if err := checkURL(rawURL); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.Status < 200 || resp.Status > 299 {
		return nil, fmt.Errorf("unexpected status: %s", resp.StatusText)
	}
	return resp, nil
}

func checkURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return fmt.Errorf("url must start with http:// or https://")
	}
	return nil
}
