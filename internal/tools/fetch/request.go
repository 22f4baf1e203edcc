package fetch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// HTTPRequestTool implements http_request: a generic HTTP call whose
// response comes back as JSON with status, headers and content.
type HTTPRequestTool struct {
	client *Client
}

// RequestArgs represents the arguments for the http_request tool.
type RequestArgs struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Body      string            `json:"body"`
	Format    string            `json:"format"`
	Headers   map[string]string `json:"headers"`
	BasicAuth *BasicAuth        `json:"basicAuth"`
	Timeout   *int              `json:"timeout"`
}

// BasicAuth holds Basic Authentication credentials.
type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewHTTPRequestTool creates a new HTTPRequestTool.
func NewHTTPRequestTool(client *Client) *HTTPRequestTool {
	return &HTTPRequestTool{client: client}
}

// Name returns the tool name.
func (t *HTTPRequestTool) Name() string {
	return "http_request"
}

// Description returns a description of what the tool does.
func (t *HTTPRequestTool) Description() string {
	return "Sends an HTTP request. Args: {\"url\": \"https://...\", \"method\": \"GET\", \"body\": \"\"}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *HTTPRequestTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to call. Must start with http:// or https://",
			},
			"method": map[string]any{
				"type":    "string",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
				"default": "GET",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body (for POST, PUT, PATCH methods)",
			},
			"format": map[string]any{
				"type":        "string",
				"enum":        []string{"text", "html", "markdown", "json"},
				"default":     "text",
				"description": "Output format: 'text' strips HTML tags, 'html' is raw, 'markdown' converts HTML, 'json' parses the body",
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"basicAuth": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"username": map[string]any{"type": "string"},
					"password": map[string]any{"type": "string"},
				},
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Timeout in seconds (1-120).",
				"minimum":     1,
				"maximum":     maxTimeoutSecs,
			},
		},
		"required": []string{"url"},
	}
}

// Execute performs the request.
func (t *HTTPRequestTool) Execute(ctx context.Context, args string) (string, error) {
	var a RequestArgs
	if err := json.Unmarshal([]byte(orEmpty(args)), &a); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}
	if err := checkURL(a.URL); err != nil {
		return "", err
	}

	if a.Format == "" {
		a.Format = "text"
	}
	a.Method = strings.ToUpper(strings.TrimSpace(a.Method))
	if a.Method == "" {
		a.Method = http.MethodGet
	}
	if a.Body != "" && (a.Method == http.MethodGet || a.Method == http.MethodHead || a.Method == http.MethodDelete) {
		a.Body = ""
	}

	if a.Timeout != nil {
		if *a.Timeout < 1 || *a.Timeout > maxTimeoutSecs {
			return "", fmt.Errorf("timeout must be between 1 and %d seconds", maxTimeoutSecs)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*a.Timeout)*time.Second)
		defer cancel()
	}

	var bodyReader io.Reader
	if a.Body != "" {
		bodyReader = strings.NewReader(a.Body)
	}
	req, err := http.NewRequestWithContext(ctx, a.Method, a.URL, bodyReader)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	for name, value := range a.Headers {
		req.Header.Set(name, value)
	}
	if a.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.BasicAuth != nil && a.BasicAuth.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(a.BasicAuth.Username + ":" + a.BasicAuth.Password))
		req.Header.Set("Authorization", "Basic "+auth)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}

	content := string(resp.Body)
	isHTML := strings.Contains(resp.ContentType, "text/html")
	switch {
	case a.Format == "text" && isHTML:
		content = stripHTML(content)
	case a.Format == "markdown" && isHTML:
		content = toMarkdown(content)
	}

	result := map[string]any{
		"url":         a.URL,
		"status":      resp.Status,
		"statusText":  resp.StatusText,
		"contentType": resp.ContentType,
		"length":      len(content),
		"content":     content,
	}
	if a.Format == "json" {
		var data any
		if err := json.Unmarshal(resp.Body, &data); err != nil {
			return "", fmt.Errorf("failed to parse JSON response: %w", err)
		}
		result["json"] = data
	}

	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	result["headers"] = headers

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(out), nil
}

func stripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapse(html)
	}
	doc.Find("script, style, noscript").Remove()
	return collapse(doc.Text())
}
