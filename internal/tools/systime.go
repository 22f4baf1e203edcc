package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/microbot/internal/clock"
)

// TimeSource returns the wall-clock time in a timezone.
// *clock.Clock satisfies it.
type TimeSource interface {
	Now(ctx context.Context, tz string) clock.TimeValue
}

// weekdayNames are indexed with Monday=0, as clock.TimeValue stores them.
var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// CurrentTimeTool implements get_current_time.
type CurrentTimeTool struct {
	clock    TimeSource
	timezone string
}

// NewCurrentTimeTool creates a new CurrentTimeTool.
func NewCurrentTimeTool(clock TimeSource, timezone string) *CurrentTimeTool {
	return &CurrentTimeTool{clock: clock, timezone: timezone}
}

// Name returns the tool name.
func (t *CurrentTimeTool) Name() string {
	return "get_current_time"
}

// Description returns a description of what the tool does.
func (t *CurrentTimeTool) Description() string {
	return "Returns the current date and time. Args: {}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *CurrentTimeTool) Parameters() map[string]any {
	return emptySchema()
}

// Execute returns the current time.
func (t *CurrentTimeTool) Execute(ctx context.Context, _ string) (string, error) {
	now := t.clock.Now(ctx, t.timezone)

	tz := t.timezone
	if tz == "" {
		tz = time.Local.String()
	}
	weekday := ""
	if now.Weekday >= 0 && now.Weekday < len(weekdayNames) {
		weekday = weekdayNames[now.Weekday] + ", "
	}
	return fmt.Sprintf("Current time: %s%s (%s)", weekday, now.String(), tz), nil
}
