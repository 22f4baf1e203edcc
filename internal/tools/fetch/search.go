package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultSearchURL  = "https://html.duckduckgo.com/html/"
	defaultMaxResults = 5
	maxSearchResults  = 10
)

// WebSearchTool implements web_search over the DuckDuckGo HTML endpoint.
type WebSearchTool struct {
	client  *Client
	baseURL string
}

// NewWebSearchTool creates a WebSearchTool. An empty baseURL uses DuckDuckGo.
func NewWebSearchTool(client *Client, baseURL string) *WebSearchTool {
	if baseURL == "" {
		baseURL = defaultSearchURL
	}
	return &WebSearchTool{client: client, baseURL: baseURL}
}

// Name returns the tool name.
func (t *WebSearchTool) Name() string {
	return "web_search"
}

// Description returns a description of what the tool does.
func (t *WebSearchTool) Description() string {
	return "Searches the web. Args: {\"query\": \"openwrt release notes\", \"max_results\": 5}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *WebSearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":       map[string]any{"type": "string", "description": "Search query."},
			"max_results": map[string]any{"type": "integer", "description": "Number of results (1-10).", "default": defaultMaxResults},
		},
		"required": []string{"query"},
	}
}

type searchArgs struct {
	Query      string `json:"query"`
	Q          string `json:"q"`
	MaxResults int    `json:"max_results"`
}

// SearchResult is one hit of a web search.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Execute runs the search and lists the hits.
func (t *WebSearchTool) Execute(ctx context.Context, args string) (string, error) {
	var a searchArgs
	if err := json.Unmarshal([]byte(orEmpty(args)), &a); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}
	if a.Query == "" {
		a.Query = a.Q
	}
	a.Query = strings.TrimSpace(a.Query)
	if a.Query == "" {
		return "", fmt.Errorf("query is required")
	}
	if a.MaxResults <= 0 {
		a.MaxResults = defaultMaxResults
	}
	a.MaxResults = min(a.MaxResults, maxSearchResults)

	resp, err := t.client.Get(ctx, t.baseURL+"?q="+url.QueryEscape(a.Query))
	if err != nil {
		return "", err
	}
	results, err := ParseSearchResults(resp.Body, a.MaxResults)
	if err != nil {
		return "", err
	}
	return FormatSearchResults(a.Query, results), nil
}

// ParseSearchResults extracts hits from a DuckDuckGo HTML result page.
func ParseSearchResults(html []byte, limit int) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []SearchResult
	seen := map[string]bool{}
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		href, _ := link.Attr("href")
		target := resultURL(href)
		if target == "" || seen[target] {
			return true
		}
		seen[target] = true
		results = append(results, SearchResult{
			Title:   collapse(link.Text()),
			URL:     target,
			Snippet: collapse(s.Find(".result__snippet").First().Text()),
		})
		return len(results) < limit
	})
	return results, nil
}

// FormatSearchResults renders hits as a "Top Links" block followed by a
// content preview.
func FormatSearchResults(query string, results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search: %s\n\n--- Top Links ---\n", query)
	for _, r := range results {
		if r.Title != "" {
			fmt.Fprintf(&b, "%s - %s\n", r.URL, r.Title)
		} else {
			b.WriteString(r.URL + "\n")
		}
	}
	b.WriteString("\n--- Content Preview ---\n")
	for _, r := range results {
		if r.Snippet != "" {
			fmt.Fprintf(&b, "%s: %s\n", orDefault(r.Title, r.URL), truncateRunes(r.Snippet, 300))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// resultURL unwraps DuckDuckGo redirect links (/l/?uddg=<target>).
func resultURL(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
