package cron

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wasilibs/go-re2"
)

var (
	// ErrMissingSchedule is returned when no schedule text was given.
	ErrMissingSchedule = errors.New("schedule is missing")
	// ErrMissingTime is returned when a phrase needs a time of day and has none.
	ErrMissingTime = errors.New("schedule time is missing")
	// ErrUnsupportedSchedule is returned for phrases the parser does not know.
	ErrUnsupportedSchedule = errors.New("unsupported schedule")
)

var (
	inDurationPattern = re2.MustCompile(`^in\s+(\d+)\s+(minute|min|hour)`)
	everyNPattern     = re2.MustCompile(`every\s+(\d+)\s+(minute|min|hour)`)
	clockAmPmPattern  = re2.MustCompile(`^(\d{1,2})(?::(\d{1,2}))?(am|pm)$`)
	clock24Pattern    = re2.MustCompile(`^(\d{1,2}):(\d{1,2})$`)
)

var weekdayNames = []struct {
	name string
	dow  int
}{
	{"sunday", 0},
	{"monday", 1},
	{"tuesday", 2},
	{"wednesday", 3},
	{"thursday", 4},
	{"friday", 5},
	{"saturday", 6},
}

// ParseNatural turns a short English phrase into a cron expression and the
// directive type it implies ("once" for single moments, "reminder" for repeats).
//
// Supported: "in N minutes|hours", "tomorrow at T", "every N minutes|hours",
// "every day at T", "daily at T", "every weekday at T", "every <dayname> at T", "at T".
func ParseNatural(text string, now time.Time) (expr, typ string, err error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return "", "", ErrMissingSchedule
	}

	if m := inDurationPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 0 {
			unit := time.Minute
			if m[2] == "hour" {
				unit = time.Hour
			}
			return onceAt(now.Add(time.Duration(n) * unit)), TypeOnce, nil
		}
	}

	if strings.Contains(s, "tomorrow") {
		hour, minute, ok := parseClock(s)
		if !ok {
			return "", "", ErrMissingTime
		}
		return onceAt(nextOccurrence(now, hour, minute, 1)), TypeOnce, nil
	}

	if strings.Contains(s, "every") || strings.Contains(s, "daily") {
		if m := everyNPattern.FindStringSubmatch(s); m != nil {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				if m[2] == "hour" {
					return fmt.Sprintf("0 */%d * * *", n), TypeReminder, nil
				}
				return fmt.Sprintf("*/%d * * * *", n), TypeReminder, nil
			}
		}

		if strings.Contains(s, "every day") || strings.Contains(s, "daily") {
			return recurringAt(s, "*")
		}
		if strings.Contains(s, "weekday") {
			return recurringAt(s, "1-5")
		}
		for _, wd := range weekdayNames {
			if strings.Contains(s, "every "+wd.name) {
				return recurringAt(s, strconv.Itoa(wd.dow))
			}
		}
	}

	if strings.Contains(s, " at ") || strings.HasPrefix(s, "at ") {
		hour, minute, ok := parseClock(s)
		if !ok {
			return "", "", ErrMissingTime
		}
		return onceAt(nextOccurrence(now, hour, minute, 0)), TypeOnce, nil
	}

	return "", "", ErrUnsupportedSchedule
}

func recurringAt(s, dow string) (string, string, error) {
	hour, minute, ok := parseClock(s)
	if !ok {
		return "", "", ErrMissingTime
	}
	return fmt.Sprintf("%d %d * * %s", minute, hour, dow), TypeReminder, nil
}

// onceAt pins minute, hour, day and month; the weekday stays open.
func onceAt(t time.Time) string {
	return fmt.Sprintf("%d %d %d %d *", t.Minute(), t.Hour(), t.Day(), int(t.Month()))
}

// nextOccurrence returns hour:minute addDays from now, pushed a day ahead
// when the result is not in the future.
func nextOccurrence(now time.Time, hour, minute, addDays int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	target = target.AddDate(0, 0, addDays)
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// parseClock extracts a time of day from "9am", "9 am", "9:30pm" or "09:30".
func parseClock(text string) (hour, minute int, ok bool) {
	s := strings.NewReplacer(",", " ", ".", " ").Replace(strings.ToLower(text))
	tokens := strings.Fields(s)

	for i, tok := range tokens {
		if i+1 < len(tokens) && (tokens[i+1] == "am" || tokens[i+1] == "pm") {
			if h, err := strconv.Atoi(tok); err == nil {
				if h, ok := applyMeridiem(h, tokens[i+1]); ok {
					return h, 0, true
				}
				continue
			}
		}

		if m := clockAmPmPattern.FindStringSubmatch(tok); m != nil {
			h, _ := strconv.Atoi(m[1])
			mi := 0
			if m[2] != "" {
				mi, _ = strconv.Atoi(m[2])
			}
			if h, ok := applyMeridiem(h, m[3]); ok && mi <= 59 {
				return h, mi, true
			}
			continue
		}

		if m := clock24Pattern.FindStringSubmatch(tok); m != nil {
			h, _ := strconv.Atoi(m[1])
			mi, _ := strconv.Atoi(m[2])
			if h <= 23 && mi <= 59 {
				return h, mi, true
			}
		}
	}
	return 0, 0, false
}

func applyMeridiem(hour int, meridiem string) (int, bool) {
	if hour < 0 || hour > 23 {
		return 0, false
	}
	switch {
	case meridiem == "pm" && hour < 12:
		hour += 12
	case meridiem == "am" && hour == 12:
		hour = 0
	}
	return hour, true
}

// scheduleKeys are checked in order when reading a schedule from tool arguments.
var scheduleKeys = []string{"cron", "cron_expression", "schedule", "time_offset", "interval"}

// NormalizeScheduleArgs reads the schedule and type from tool arguments.
// A valid cron expression is used as is; otherwise the text is parsed with
// ParseNatural. A one-time phrase turns the requested type into its once variant.
func NormalizeScheduleArgs(args map[string]any, now time.Time) (expr, typ string, err error) {
	typ = TypeMsg
	if v, ok := args["type"].(string); ok && strings.TrimSpace(v) != "" {
		typ = strings.ToLower(strings.TrimSpace(v))
	}

	for _, key := range scheduleKeys {
		if v, ok := args[key]; ok {
			expr = strings.TrimSpace(fmt.Sprint(v))
			if expr != "" {
				break
			}
		}
	}

	if IsValid(expr) {
		return expr, typ, nil
	}
	if expr == "" {
		return "", "", ErrMissingSchedule
	}

	parsed, parsedType, err := ParseNatural(expr, now)
	if err != nil {
		return "", "", err
	}
	if parsedType == TypeOnce {
		return parsed, OnceVariant(typ), nil
	}
	if IsOneShot(typ) {
		return parsed, RecurringVariant(typ), nil
	}
	return parsed, typ, nil
}

// UserMessage renders schedule parsing errors for chat replies.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingTime):
		return "Please specify a time (e.g., 'tomorrow at 9am' or 'at 18:30')."
	case errors.Is(err, ErrMissingSchedule):
		return "Schedule is missing."
	default:
		return "Unsupported schedule. Use 5-field cron or phrases like 'every day at 9am'."
	}
}
