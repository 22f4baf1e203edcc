package cron

import (
	"errors"
	"strconv"
	"strings"

	"github.com/aatumaykin/microbot/internal/clock"
)

// ErrInvalidExpression is returned for expressions rejected by IsValid.
var ErrInvalidExpression = errors.New("invalid cron expression")

// field describes one position of a 5-field expression.
type field struct {
	name     string
	min, max int
	dow      bool
}

var fields = [5]field{
	{name: "minute", min: 0, max: 59},
	{name: "hour", min: 0, max: 23},
	{name: "day-of-month", min: 1, max: 31},
	{name: "month", min: 1, max: 12},
	{name: "day-of-week", min: 0, max: 7, dow: true},
}

// Match reports whether t satisfies expr.
//
// All five fields must match, day-of-month AND day-of-week included; this is
// stricter than classic cron, which ORs the two day fields when both are set.
// Any unparsable field makes the whole expression false.
func Match(expr string, t clock.TimeValue) bool {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return false
	}
	values := [5]int{t.Minute, t.Hour, t.Day, t.Month, t.CronWeekday()}
	for i, part := range parts {
		if !matchField(part, values[i], fields[i].dow) {
			return false
		}
	}
	return true
}

func matchField(f string, v int, dow bool) bool {
	if f == "*" {
		return true
	}

	if strings.Contains(f, ",") {
		for _, member := range strings.Split(f, ",") {
			if matchField(member, v, dow) {
				return true
			}
		}
		return false
	}

	step := 1
	if base, stepStr, ok := strings.Cut(f, "/"); ok {
		n, err := strconv.Atoi(stepStr)
		if err != nil || n <= 0 {
			return false
		}
		f, step = base, n
	}

	if f == "*" {
		return v%step == 0
	}

	if lo, hi, ok := strings.Cut(f, "-"); ok {
		a, errA := strconv.Atoi(lo)
		b, errB := strconv.Atoi(hi)
		if errA != nil || errB != nil {
			return false
		}
		if dow {
			a, b = dowAlias(a), dowAlias(b)
		}
		if a <= b {
			if v < a || v > b {
				return false
			}
		} else if v > b && v < a {
			// wrap-around range such as 22-2
			return false
		}
		return mod(v-a, step) == 0
	}

	n, err := strconv.Atoi(f)
	if err != nil {
		return false
	}
	if dow {
		n = dowAlias(n)
	}
	return v == n
}

// IsValid reports whether expr is a well-formed 5-field expression with every
// value inside its field bounds (minute 0-59, hour 0-23, dom 1-31, month 1-12, dow 0-7).
func IsValid(expr string) bool {
	return Validate(expr) == nil
}

// Validate is IsValid with a reason.
func Validate(expr string) error {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return errors.Join(ErrInvalidExpression, errors.New("expected 5 fields"))
	}
	for i, part := range parts {
		if !validField(part, fields[i]) {
			return errors.Join(ErrInvalidExpression, errors.New("bad "+fields[i].name+" field: "+part))
		}
	}
	return nil
}

func validField(part string, fd field) bool {
	if part == "*" {
		return true
	}

	if strings.Contains(part, ",") {
		for _, member := range strings.Split(part, ",") {
			if !validField(strings.TrimSpace(member), fd) {
				return false
			}
		}
		return true
	}

	base := part
	if b, stepStr, ok := strings.Cut(part, "/"); ok {
		n, err := strconv.Atoi(stepStr)
		if err != nil || n <= 0 {
			return false
		}
		base = b
	}

	if base == "*" {
		return true
	}

	if lo, hi, ok := strings.Cut(base, "-"); ok {
		a, errA := strconv.Atoi(lo)
		b, errB := strconv.Atoi(hi)
		if errA != nil || errB != nil {
			return false
		}
		if fd.dow {
			a, b = dowAlias(a), dowAlias(b)
		}
		return inRange(a, fd) && inRange(b, fd)
	}

	n, err := strconv.Atoi(base)
	if err != nil {
		return false
	}
	if fd.dow {
		n = dowAlias(n)
	}
	return inRange(n, fd)
}

func inRange(n int, fd field) bool {
	return n >= fd.min && n <= fd.max
}

func dowAlias(n int) int {
	if n == 7 {
		return 0
	}
	return n
}

// mod is the non-negative remainder, so wrapped ranges step from their start.
func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
