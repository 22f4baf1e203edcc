package cron

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aatumaykin/microbot/internal/channels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toolCall struct {
	name string
	args any
}

type fakeTools struct {
	results map[string]string
	calls   []toolCall
}

func (f *fakeTools) Execute(_ context.Context, name string, args any) string {
	f.calls = append(f.calls, toolCall{name: name, args: args})
	return f.results[name]
}

type fakeCommands struct{ out string }

func (f fakeCommands) Run(_ context.Context, command string) string {
	return f.out + command
}

type fakeAgent struct {
	reply string
	err   error
	text  string
	user  string
}

func (f *fakeAgent) Process(_ context.Context, _ string, userName, text string) (string, error) {
	f.user = userName
	f.text = text
	return f.reply, f.err
}

func TestExecutor_Message(t *testing.T) {
	sender := &channels.RecordingSender{}
	e := NewExecutor(ExecutorDeps{Sender: sender})

	for _, typ := range []string{TypeMsg, TypeReminder, "reminder_weekly", TypeOnce} {
		fired, err := e.Fire(context.Background(), Directive{ID: "m", Chat: "1", Type: typ, Content: typ})
		require.NoError(t, err)
		assert.True(t, fired, typ)
	}
	assert.Equal(t, []string{TypeMsg, TypeReminder, "reminder_weekly", TypeOnce}, sender.Texts())
}

func TestExecutor_SendFailure(t *testing.T) {
	sender := &channels.RecordingSender{Err: errors.New("offline")}
	e := NewExecutor(ExecutorDeps{Sender: sender})

	fired, err := e.Fire(context.Background(), Directive{ID: "m", Chat: "1", Type: TypeMsg, Content: "x"})
	assert.Error(t, err)
	assert.False(t, fired)
}

func TestExecutor_Command(t *testing.T) {
	sender := &channels.RecordingSender{}
	e := NewExecutor(ExecutorDeps{Sender: sender, Commands: fakeCommands{out: "ran: "}})

	fired, err := e.Fire(context.Background(), Directive{ID: "c", Chat: "1", Type: TypeCmd, Content: "uptime"})
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, []string{"ran: uptime"}, sender.Texts())

	_, err = NewExecutor(ExecutorDeps{Sender: sender}).Fire(context.Background(), Directive{ID: "c", Type: TypeOnceCmd})
	assert.Error(t, err, "no command runner")
}

func TestExecutor_Tool(t *testing.T) {
	sender := &channels.RecordingSender{}
	tools := &fakeTools{results: map[string]string{"get_weather": "Sunny, 21C"}}
	e := NewExecutor(ExecutorDeps{Sender: sender, Tools: tools})

	fired, err := e.Fire(context.Background(), Directive{ID: "t", Chat: "1", Type: TypeTool, Content: "get_weather|{\"location\":\"Madrid\"}"})
	require.NoError(t, err)
	assert.True(t, fired)
	require.Len(t, tools.calls, 1)
	assert.Equal(t, "get_weather", tools.calls[0].name)
	assert.Equal(t, `{"location":"Madrid"}`, tools.calls[0].args)
	assert.Equal(t, []string{"Sunny, 21C"}, sender.Texts())
}

func TestExecutor_ToolFileResult(t *testing.T) {
	sender := &channels.RecordingSender{}
	tools := &fakeTools{results: map[string]string{"download_file": "FILE:/tmp/report.pdf"}}
	e := NewExecutor(ExecutorDeps{Sender: sender, Tools: tools})

	fired, err := e.Fire(context.Background(), Directive{ID: "t", Chat: "7", Type: TypeOnceTool, Content: "download_file|{}"})
	require.NoError(t, err)
	assert.True(t, fired)

	sent := sender.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "/tmp/report.pdf", sent[0].Path)
	assert.Equal(t, "File downloaded", sent[0].Caption)
	assert.Equal(t, "File sent: /tmp/report.pdf", sent[1].Text)
}

func TestExecutor_Probe(t *testing.T) {
	tests := []struct {
		name      string
		probe     string
		result    string
		wantFired bool
	}{
		{name: "net check healthy", probe: "net_check", result: "NET_OK", wantFired: false},
		{name: "net check down", probe: "net_check", result: "NET_DOWN: no route", wantFired: true},
		{name: "other probe silent", probe: "disk_check", result: "", wantFired: false},
		{name: "other probe alert", probe: "disk_check", result: "disk 95% full", wantFired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &channels.RecordingSender{}
			tools := &fakeTools{results: map[string]string{tt.probe: tt.result}}
			e := NewExecutor(ExecutorDeps{Sender: sender, Tools: tools})

			fired, err := e.Fire(context.Background(), Directive{ID: "p", Chat: "1", Type: TypeProbe, Content: " " + tt.probe + " "})
			require.NoError(t, err)
			assert.Equal(t, tt.wantFired, fired)
			assert.Equal(t, tt.wantFired, len(sender.Texts()) == 1)
			assert.Equal(t, "{}", tools.calls[0].args)
		})
	}
}

func TestExecutor_Agent(t *testing.T) {
	sender := &channels.RecordingSender{}
	agent := &fakeAgent{reply: "Here is your digest"}
	e := NewExecutor(ExecutorDeps{Sender: sender})
	e.SetAgent(agent)

	fired, err := e.Fire(context.Background(), Directive{ID: "a", Chat: "1", Type: TypeAgent, Content: "summarize news"})
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, "Schedule", agent.user)
	assert.Equal(t, "summarize news", agent.text)
	assert.Equal(t, []string{"Here is your digest"}, sender.Texts())
}

func TestExecutor_AgentError(t *testing.T) {
	sender := &channels.RecordingSender{}
	agent := &fakeAgent{err: errors.New(strings.Repeat("x", 300))}
	e := NewExecutor(ExecutorDeps{Sender: sender, Agent: agent})

	fired, err := e.Fire(context.Background(), Directive{ID: "a", Chat: "1", Type: TypeOnceAgent, Content: "do"})
	require.NoError(t, err)
	assert.True(t, fired, "errored runs still count as fired")

	texts := sender.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "Schedule agent error: "+strings.Repeat("x", 200), texts[0])
}

func TestExecutor_AgentEmptyReply(t *testing.T) {
	sender := &channels.RecordingSender{}
	e := NewExecutor(ExecutorDeps{Sender: sender, Agent: &fakeAgent{}})

	fired, err := e.Fire(context.Background(), Directive{ID: "a", Chat: "1", Type: TypeAgent, Content: "do"})
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Empty(t, sender.Sent())
}

func TestExecutor_UnknownType(t *testing.T) {
	sender := &channels.RecordingSender{}
	e := NewExecutor(ExecutorDeps{Sender: sender})

	fired, err := e.Fire(context.Background(), Directive{ID: "u", Chat: "1", Type: "webhook", Content: "x"})
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Empty(t, sender.Sent())
}
