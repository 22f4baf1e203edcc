package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/microbot/internal/clock"
	"github.com/aatumaykin/microbot/internal/cron"
)

type fixedTime struct{ tv clock.TimeValue }

func (f fixedTime) Now(context.Context, string) clock.TimeValue { return f.tv }

func newScheduleFixture(t *testing.T) (*cron.Storage, TimeSource) {
	t.Helper()
	store := cron.NewStorage(t.TempDir(), newTestLogger(t))
	return store, fixedTime{tv: clock.Date(2026, 3, 10, 8, 15)}
}

func TestSetScheduleTool(t *testing.T) {
	store, now := newScheduleFixture(t)
	tool := NewSetScheduleTool(store, now, "Europe/Madrid")
	ctx := WithChat(context.Background(), "42")

	out, err := tool.Execute(ctx, `{"cron":"0 9 * * *","content":"drink water","id":"water"}`)
	require.NoError(t, err)
	assert.Equal(t, "Scheduled water: 0 9 * * * (msg) drink water", out)

	out, err = tool.Execute(ctx, `{"schedule":"in 10 minutes","message":"call mom"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "25 8 10 3 * (once) call mom")

	_, err = tool.Execute(ctx, `{"schedule":"every day at 7pm","command":"uptime","type":"cmd","name":"up"}`)
	require.NoError(t, err)

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, cron.Directive{ID: "water", Cron: "0 9 * * *", Chat: "42", Type: "msg", Content: "drink water"}, list[0])
	assert.Len(t, list[1].ID, scheduleIDLen)
	assert.Equal(t, cron.Directive{ID: "up", Cron: "0 19 * * *", Chat: "42", Type: "cmd", Content: "uptime"}, list[2])
}

func TestSetScheduleTool_Errors(t *testing.T) {
	store, now := newScheduleFixture(t)
	tool := NewSetScheduleTool(store, now, "")
	ctx := context.Background()

	tests := []struct {
		args string
		msg  string
	}{
		{`{"content":"x"}`, "Schedule is missing."},
		{`{"schedule":"tomorrow","content":"x"}`, "Please specify a time"},
		{`{"schedule":"whenever","content":"x"}`, "Unsupported schedule"},
		{`{"cron":"0 9 * * *"}`, "content is required"},
		{`{"cron":"0 9 * * *","content":"x","type":"bogus"}`, "unknown schedule type"},
		{`{"cron":"0 9 * * *","content":"x","id":"a|b"}`, "must not contain"},
	}
	for _, tt := range tests {
		_, err := tool.Execute(ctx, tt.args)
		require.Error(t, err, tt.args)
		assert.Contains(t, err.Error(), tt.msg)
	}

	list, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSetScheduleTool_MultilineContent(t *testing.T) {
	store, now := newScheduleFixture(t)
	tool := NewSetScheduleTool(store, now, "")

	_, err := tool.Execute(context.Background(), `{"cron":"* * * * *","content":"line one\nline two","id":"ml"}`)
	require.NoError(t, err)

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "line one line two", list[0].Content)
}

func TestSetProbeTool(t *testing.T) {
	store, _ := newScheduleFixture(t)
	tool := NewSetProbeTool(store)
	ctx := WithChat(context.Background(), "7")

	out, err := tool.Execute(ctx, `{"cron_expression":"*/5 * * * *","probe":"net_check","id":"net"}`)
	require.NoError(t, err)
	assert.Equal(t, "Probe net scheduled: */5 * * * * (net_check)", out)

	_, err = tool.Execute(ctx, `{"cron":"every day","probe":"net_check"}`)
	require.Error(t, err)
	_, err = tool.Execute(ctx, `{"cron":"* * * * *"}`)
	require.Error(t, err)

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cron.TypeProbe, list[0].Type)
	assert.Equal(t, "7", list[0].Chat)
}

func TestListAndRemoveSchedules(t *testing.T) {
	store, _ := newScheduleFixture(t)
	list := NewListSchedulesTool(store)
	remove := NewRemoveScheduleTool(store)
	ctx := context.Background()

	out, err := list.Execute(ctx, "{}")
	require.NoError(t, err)
	assert.Equal(t, "No schedules.", out)

	require.NoError(t, store.Append(cron.Directive{ID: "a1", Cron: "0 9 * * *", Chat: "1", Type: "msg", Content: "hello"}))
	require.NoError(t, store.Append(cron.Directive{ID: "b2", Cron: "*/5 * * * *", Chat: "1", Type: "probe", Content: "net_check"}))

	out, err = list.Execute(ctx, "{}")
	require.NoError(t, err)
	assert.Equal(t, "Schedules (2):\n- a1 | 0 9 * * * | msg | hello\n- b2 | */5 * * * * | probe | net_check", out)

	out, err = remove.Execute(ctx, `{"id":"a1"}`)
	require.NoError(t, err)
	assert.Equal(t, "Removed schedule a1.", out)

	_, err = remove.Execute(ctx, `{"id":"a1"}`)
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeNotFound, toolErr.Code)

	_, err = remove.Execute(ctx, `{}`)
	require.Error(t, err)

	out, err = list.Execute(ctx, "{}")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Schedules (1):"))
}
