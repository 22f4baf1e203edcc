package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const defaultWeatherURL = "https://wttr.in"

// WeatherTool implements get_weather using the wttr.in one-line format.
type WeatherTool struct {
	client  *Client
	baseURL string
}

// NewWeatherTool creates a WeatherTool. An empty baseURL uses wttr.in.
func NewWeatherTool(client *Client, baseURL string) *WeatherTool {
	if baseURL == "" {
		baseURL = defaultWeatherURL
	}
	return &WeatherTool{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Name returns the tool name.
func (t *WeatherTool) Name() string {
	return "get_weather"
}

// Description returns a description of what the tool does.
func (t *WeatherTool) Description() string {
	return "Current weather for a place. Args: {\"location\": \"Madrid\"}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *WeatherTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"location": map[string]any{"type": "string", "description": "City or place name."},
		},
		"required": []string{"location"},
	}
}

type weatherArgs struct {
	Location string `json:"location"`
	City     string `json:"city"`
}

// Execute returns a one-line weather report.
func (t *WeatherTool) Execute(ctx context.Context, args string) (string, error) {
	var a weatherArgs
	if err := json.Unmarshal([]byte(orEmpty(args)), &a); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}
	if a.Location == "" {
		a.Location = a.City
	}
	a.Location = strings.TrimSpace(a.Location)
	if a.Location == "" {
		return "", fmt.Errorf("location is required")
	}

	resp, err := t.client.Get(ctx, t.baseURL+"/"+url.PathEscape(a.Location)+"?format=3")
	if err != nil {
		return "", err
	}
	report := strings.TrimSpace(string(resp.Body))
	if report == "" {
		return "", fmt.Errorf("empty weather report for %s", a.Location)
	}
	return report, nil
}
