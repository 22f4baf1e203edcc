package cron

import (
	"testing"

	"github.com/aatumaykin/microbot/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestMatch_EveryFiveMinutes(t *testing.T) {
	for minute := 0; minute < 60; minute++ {
		tv := clock.Date(2024, 3, 4, 10, minute)
		assert.Equal(t, minute%5 == 0, Match("*/5 * * * *", tv), "minute %d", minute)
	}
}

func TestMatch_WrapAroundHours(t *testing.T) {
	want := map[int]bool{22: true, 23: true, 0: true, 1: true, 2: true}
	for hour := 0; hour < 24; hour++ {
		tv := clock.Date(2024, 3, 4, hour, 0)
		assert.Equal(t, want[hour], Match("0 22-2 * * *", tv), "hour %d", hour)
	}
}

func TestMatch_WrapAroundWithStep(t *testing.T) {
	// 22-2/2 steps from 22: 22, 0, 2
	want := map[int]bool{22: true, 0: true, 2: true}
	for hour := 0; hour < 24; hour++ {
		tv := clock.Date(2024, 3, 4, hour, 0)
		assert.Equal(t, want[hour], Match("0 22-2/2 * * *", tv), "hour %d", hour)
	}
}

func TestMatch_SundayAliases(t *testing.T) {
	day := clock.Date(2024, 3, 3, 9, 0) // Sunday
	for i := 0; i < 14; i++ {
		tv := clock.AddMinutes(day, i*1440)
		assert.Equal(t, Match("0 9 * * 0", tv), Match("0 9 * * 7", tv), "date %s", tv)
		assert.Equal(t, Match("0 9 * * 5-0", tv), Match("0 9 * * 5-7", tv), "date %s", tv)
	}
	assert.True(t, Match("0 9 * * 7", day))
	assert.True(t, Match("0 9 * * 0", day))
}

func TestMatch_Fields(t *testing.T) {
	monday := clock.Date(2024, 3, 4, 9, 30)

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{name: "all wildcards", expr: "* * * * *", want: true},
		{name: "literal", expr: "30 9 4 3 1", want: true},
		{name: "wrong minute", expr: "31 9 * * *", want: false},
		{name: "comma list", expr: "0,15,30,45 * * * *", want: true},
		{name: "comma list miss", expr: "0,15,45 * * * *", want: false},
		{name: "range", expr: "* 8-10 * * *", want: true},
		{name: "range with step", expr: "0-59/10 * * * *", want: true},
		{name: "range with step miss", expr: "5-59/10 * * * *", want: false},
		{name: "weekdays", expr: "30 9 * * 1-5", want: true},
		{name: "weekend", expr: "30 9 * * 6,0", want: false},
		{name: "dom and dow both restricted match", expr: "30 9 4 * 1", want: true},
		{name: "dom matches but dow does not", expr: "30 9 4 * 2", want: false},
		{name: "dow matches but dom does not", expr: "30 9 5 * 1", want: false},
		{name: "four fields", expr: "30 9 * *", want: false},
		{name: "six fields", expr: "0 30 9 * * *", want: false},
		{name: "garbage field", expr: "x 9 * * *", want: false},
		{name: "zero step", expr: "*/0 * * * *", want: false},
		{name: "bad step", expr: "*/x * * * *", want: false},
		{name: "open range", expr: "5- * * * *", want: false},
		{name: "extra whitespace", expr: "  30   9 * * *  ", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.expr, monday))
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"* * * * *", true},
		{"*/5 * * * *", true},
		{"0 22-2 * * *", true},
		{"0 9 * * 7", true},
		{"0 9 * * 1-7", true},
		{"0,30 8-18/2 1,15 1-12 1-5", true},
		{"0 9 1 1 *", true},
		{"60 * * * *", false},
		{"* 24 * * *", false},
		{"* * 0 * *", false},
		{"* * 32 * *", false},
		{"* * * 13 *", false},
		{"* * * 0 *", false},
		{"* * * * 8", false},
		{"*/0 * * * *", false},
		{"a * * * *", false},
		{"1-x * * * *", false},
		{"* * * *", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.expr))
		})
	}
}

func TestValidate_ReportsField(t *testing.T) {
	err := Validate("0 25 * * *")
	assert.ErrorIs(t, err, ErrInvalidExpression)
	assert.Contains(t, err.Error(), "hour")
}
