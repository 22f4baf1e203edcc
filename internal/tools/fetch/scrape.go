package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/wasilibs/go-re2"
)

const (
	maxHeadings   = 10
	maxLinks      = 10
	maxContentLen = 3000
)

var (
	reSpaces   = re2.MustCompile(`[ \t]+`)
	reNewlines = re2.MustCompile(`\n{3,}`)
)

// ScrapeWebTool implements scrape_web: a page summary with title,
// description, headings, links and the main text as Markdown.
type ScrapeWebTool struct {
	client *Client
}

// NewScrapeWebTool creates a new ScrapeWebTool.
func NewScrapeWebTool(client *Client) *ScrapeWebTool {
	return &ScrapeWebTool{client: client}
}

// Name returns the tool name.
func (t *ScrapeWebTool) Name() string {
	return "scrape_web"
}

// Description returns a description of what the tool does.
func (t *ScrapeWebTool) Description() string {
	return "Reads a web page: title, description, headings, links and text. Args: {\"url\": \"https://example.com\"}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *ScrapeWebTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to read. Must start with http:// or https://",
			},
		},
		"required": []string{"url"},
	}
}

type scrapeArgs struct {
	URL string `json:"url"`
}

// Execute fetches and summarizes the page.
func (t *ScrapeWebTool) Execute(ctx context.Context, args string) (string, error) {
	var a scrapeArgs
	if err := json.Unmarshal([]byte(orEmpty(args)), &a); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	resp, err := t.client.Get(ctx, a.URL)
	if err != nil {
		return "", err
	}
	return Scrape(resp.Body, a.URL)
}

// Scrape renders an HTML document in the scrape_web text layout.
func Scrape(html []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	base, _ := url.Parse(pageURL)

	var b strings.Builder

	title := collapse(doc.Find("title").First().Text())
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n", title)
	}
	desc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	if desc == "" {
		desc, _ = doc.Find(`meta[property="og:description"]`).First().Attr("content")
	}
	if desc = collapse(desc); desc != "" {
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}

	var headings []string
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if h := collapse(s.Text()); h != "" {
			headings = append(headings, h)
		}
		return len(headings) < maxHeadings
	})
	if len(headings) > 0 {
		b.WriteString("=== Headings ===\n")
		for _, h := range headings {
			b.WriteString(h + "\n")
		}
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		abs := resolveLink(base, href)
		if abs == "" || seen[abs] {
			return true
		}
		seen[abs] = true
		text := collapse(s.Text())
		if text != "" {
			links = append(links, text+" - "+abs)
		} else {
			links = append(links, abs)
		}
		return len(links) < maxLinks
	})
	if len(links) > 0 {
		b.WriteString("=== Links ===\n")
		for _, l := range links {
			b.WriteString(l + "\n")
		}
	}

	doc.Find("script, style, noscript, nav, footer, aside, head").Remove()
	bodyHTML, _ := doc.Find("body").Html()
	if bodyHTML == "" {
		bodyHTML, _ = doc.Html()
	}
	if content := toMarkdown(bodyHTML); content != "" {
		b.WriteString("=== Content ===\n")
		b.WriteString(truncateRunes(content, maxContentLen))
		b.WriteString("\n")
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "No readable content.", nil
	}
	return out, nil
}

func toMarkdown(html string) string {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:    "atx",
		CodeBlockStyle:  "fenced",
		EmDelimiter:     "*",
		StrongDelimiter: "**",
	})
	converter.Remove("nav", "footer", "aside", "script", "style", "img")

	markdown, err := converter.ConvertString(html)
	if err != nil {
		return ""
	}
	markdown = reSpaces.ReplaceAllString(markdown, " ")
	markdown = reNewlines.ReplaceAllString(markdown, "\n\n")
	return strings.TrimSpace(markdown)
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}

func orEmpty(args string) string {
	if strings.TrimSpace(args) == "" {
		return "{}"
	}
	return args
}
