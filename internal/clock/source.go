package clock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultWorldTimeURL  = "http://worldtimeapi.org/api/timezone/"
	defaultSourceTimeout = 5 * time.Second
)

// ErrBadTimeResponse is returned when the time service payload cannot be used.
var ErrBadTimeResponse = errors.New("unexpected time service response")

// TimeSource resolves the current time in a named timezone.
type TimeSource interface {
	Lookup(ctx context.Context, tz string) (TimeValue, error)
}

// TimeSourceFunc adapts a function to TimeSource.
type TimeSourceFunc func(ctx context.Context, tz string) (TimeValue, error)

// Lookup calls f.
func (f TimeSourceFunc) Lookup(ctx context.Context, tz string) (TimeValue, error) {
	return f(ctx, tz)
}

// WorldTimeSource queries a worldtimeapi.org compatible endpoint.
type WorldTimeSource struct {
	baseURL string
	client  *http.Client
}

// NewWorldTimeSource creates a source; empty baseURL selects worldtimeapi.org.
func NewWorldTimeSource(baseURL string, timeout time.Duration) *WorldTimeSource {
	if baseURL == "" {
		baseURL = defaultWorldTimeURL
	}
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}
	return &WorldTimeSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type worldTimeResponse struct {
	Datetime  string          `json:"datetime"`
	DayOfWeek json.RawMessage `json:"day_of_week"`
	DayOfYear int             `json:"day_of_year"`
	DST       bool            `json:"dst"`
}

// Lookup implements TimeSource.
func (s *WorldTimeSource) Lookup(ctx context.Context, tz string) (TimeValue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+url.PathEscape(tz), nil)
	if err != nil {
		return TimeValue{}, fmt.Errorf("build time request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return TimeValue{}, fmt.Errorf("time request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TimeValue{}, fmt.Errorf("%w: status %d", ErrBadTimeResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return TimeValue{}, fmt.Errorf("read time response: %w", err)
	}
	return parseWorldTime(body)
}

func parseWorldTime(body []byte) (TimeValue, error) {
	var payload worldTimeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return TimeValue{}, fmt.Errorf("%w: %v", ErrBadTimeResponse, err)
	}
	// 2024-03-04T09:00:12.345678+01:00, only the local wall clock part is used
	if len(payload.Datetime) < 19 {
		return TimeValue{}, fmt.Errorf("%w: datetime %q", ErrBadTimeResponse, payload.Datetime)
	}
	wall, err := time.Parse("2006-01-02T15:04:05", payload.Datetime[:19])
	if err != nil {
		return TimeValue{}, fmt.Errorf("%w: %v", ErrBadTimeResponse, err)
	}

	tv := TimeValue{
		Year:    wall.Year(),
		Month:   int(wall.Month()),
		Day:     wall.Day(),
		Hour:    wall.Hour(),
		Minute:  wall.Minute(),
		Second:  wall.Second(),
		YearDay: payload.DayOfYear,
		DST:     payload.DST,
		Weekday: -1,
	}
	if len(payload.DayOfWeek) > 0 {
		if dow, err := strconv.Atoi(string(payload.DayOfWeek)); err == nil && dow >= 0 && dow <= 6 {
			// service counts from Sunday=0
			tv.Weekday = (dow + 6) % 7
		}
	}
	if tv.Weekday < 0 {
		tv.Weekday = Weekday(tv.Year, tv.Month, tv.Day)
	}
	return tv, nil
}
