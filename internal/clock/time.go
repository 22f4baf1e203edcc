// Package clock provides minute-granular calendar values for the scheduler:
// a normalized TimeValue, Zeller weekday, minute arithmetic and tick keys.
package clock

import (
	"fmt"
	"strconv"
	"time"
)

// KeyLayout is the textual layout of a tick key (YYYYMMDDHHMM).
const KeyLayout = "200601021504"

// TimeValue is a broken-down wall-clock time.
// Weekday uses Monday=0; it matches the date unless set by an external source.
type TimeValue struct {
	Year    int
	Month   int
	Day     int
	Hour    int
	Minute  int
	Second  int
	Weekday int
	YearDay int
	DST     bool
}

// FromTime converts a time.Time in its own location.
func FromTime(t time.Time) TimeValue {
	return TimeValue{
		Year:    t.Year(),
		Month:   int(t.Month()),
		Day:     t.Day(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Second:  t.Second(),
		Weekday: (int(t.Weekday()) + 6) % 7,
		YearDay: t.YearDay(),
		DST:     t.IsDST(),
	}
}

// Date builds a TimeValue for a calendar minute with a computed weekday.
func Date(year, month, day, hour, minute int) TimeValue {
	return TimeValue{
		Year:    year,
		Month:   month,
		Day:     day,
		Hour:    hour,
		Minute:  minute,
		Weekday: Weekday(year, month, day),
	}
}

// CronWeekday returns the weekday with Sunday=0, as cron expressions use it.
func (t TimeValue) CronWeekday() int {
	return (t.Weekday + 1) % 7
}

// Time converts the value back to a time.Time in loc.
func (t TimeValue) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, t.Minute, t.Second, 0, loc)
}

func (t TimeValue) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInMonth returns the length of month in year.
func DaysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	}
	if IsLeap(year) {
		return 29
	}
	return 28
}

// Weekday computes the day of week with Monday=0 using Zeller's congruence.
func Weekday(year, month, day int) int {
	if month < 3 {
		month += 12
		year--
	}
	k := year % 100
	j := year / 100
	h := (day + (13*(month+1))/5 + k + k/4 + j/4 + 5*j) % 7
	// Zeller: 0 = Saturday
	return (h + 5) % 7
}

// AddMinutes shifts t by delta minutes, carrying into hour, day, month and year.
// The weekday is updated incrementally on every day boundary.
func AddMinutes(t TimeValue, delta int) TimeValue {
	if delta == 0 {
		return t
	}
	step := 1
	count := delta
	if delta < 0 {
		step = -1
		count = -delta
	}

	for i := 0; i < count; i++ {
		t.Minute += step
		switch {
		case t.Minute >= 60:
			t.Minute = 0
			t.Hour++
		case t.Minute < 0:
			t.Minute = 59
			t.Hour--
		}

		switch {
		case t.Hour >= 24:
			t.Hour = 0
			t.Day++
			t.Weekday = (t.Weekday + 1) % 7
		case t.Hour < 0:
			t.Hour = 23
			t.Day--
			t.Weekday = (t.Weekday + 6) % 7
		}

		switch {
		case t.Day > DaysInMonth(t.Year, t.Month):
			t.Day = 1
			t.Month++
			if t.Month > 12 {
				t.Month = 1
				t.Year++
			}
		case t.Day < 1:
			t.Month--
			if t.Month < 1 {
				t.Month = 12
				t.Year--
			}
			t.Day = DaysInMonth(t.Year, t.Month)
		}
	}
	return t
}

// Key formats the minute of t as YYYYMMDDHHMM.
func Key(t TimeValue) string {
	return fmt.Sprintf("%04d%02d%02d%02d%02d", t.Year, t.Month, t.Day, t.Hour, t.Minute)
}

// ParseKey parses a YYYYMMDDHHMM key; weekday is recomputed, seconds are zero.
func ParseKey(key string) (TimeValue, bool) {
	if len(key) != len(KeyLayout) {
		return TimeValue{}, false
	}
	parts := [5]int{}
	bounds := [6]int{0, 4, 6, 8, 10, 12}
	for i := 0; i < 5; i++ {
		n, err := strconv.Atoi(key[bounds[i]:bounds[i+1]])
		if err != nil {
			return TimeValue{}, false
		}
		parts[i] = n
	}
	year, month, day, hour, minute := parts[0], parts[1], parts[2], parts[3], parts[4]
	if month < 1 || month > 12 || day < 1 || day > DaysInMonth(year, month) || hour > 23 || minute > 59 {
		return TimeValue{}, false
	}
	return Date(year, month, day, hour, minute), true
}

// Compare orders a and b by year, month, day, hour and minute.
func Compare(a, b TimeValue) int {
	av := [5]int{a.Year, a.Month, a.Day, a.Hour, a.Minute}
	bv := [5]int{b.Year, b.Month, b.Day, b.Hour, b.Minute}
	for i := range av {
		if av[i] < bv[i] {
			return -1
		}
		if av[i] > bv[i] {
			return 1
		}
	}
	return 0
}
