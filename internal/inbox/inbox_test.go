package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/microbot/internal/channels"
)

type echoProcessor struct {
	calls []string
	err   error
}

func (p *echoProcessor) Process(_ context.Context, chat, userName, text string) (string, error) {
	p.calls = append(p.calls, chat+"|"+userName+"|"+text)
	if p.err != nil {
		return "", p.err
	}
	return "re: " + text, nil
}

func newDrainer(t *testing.T, proc Processor, senders map[string]channels.Sender) (*Drainer, string) {
	t.Helper()
	dir := t.TempDir()
	d, err := New(Config{DataDir: dir, Processor: proc, Senders: senders})
	require.NoError(t, err)
	return d, dir
}

func enqueue(t *testing.T, d *Drainer, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(d.QueueDir(), name), []byte(body), 0o644))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Processor: &echoProcessor{}})
	assert.Error(t, err)
	_, err = New(Config{DataDir: t.TempDir()})
	assert.Error(t, err)
}

func TestDrain_Empty(t *testing.T) {
	d, _ := newDrainer(t, &echoProcessor{}, nil)
	done, err := d.Drain(context.Background())
	require.NoError(t, err)
	assert.False(t, done)
}

func TestDrain_TelegramJob(t *testing.T) {
	proc := &echoProcessor{}
	sender := &channels.RecordingSender{}
	d, dir := newDrainer(t, proc, map[string]channels.Sender{"telegram": sender})

	enqueue(t, d, "b.json", `{"channel":"telegram","target":"555","user_name":"ann","text":"second"}`)
	enqueue(t, d, "a.json", `{"channel":"telegram","target":"555","user_name":"ann","text":"first"}`)
	enqueue(t, d, "notes.txt", "ignored")

	done, err := d.Drain(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"555|ann|first"}, proc.calls)
	assert.Equal(t, []string{"re: first"}, sender.Texts())

	_, err = os.Stat(filepath.Join(d.QueueDir(), "a.json"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(dir, "inbox", "done", "a.json"))
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal(data, &job))
	assert.Equal(t, "re: first", job.Reply)
	assert.Equal(t, "first", job.Text)

	d.Run(context.Background())
	assert.Len(t, proc.calls, 2)

	done, err = d.Drain(context.Background())
	require.NoError(t, err)
	assert.False(t, done)
	_, err = os.Stat(filepath.Join(d.QueueDir(), "notes.txt"))
	assert.NoError(t, err)
}

func TestDrain_Defaults(t *testing.T) {
	proc := &echoProcessor{}
	d, dir := newDrainer(t, proc, nil)
	enqueue(t, d, "job.json", `{"text":"ping"}`)

	done, err := d.Drain(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"0||ping"}, proc.calls)

	data, err := os.ReadFile(filepath.Join(dir, "inbox", "done", "job.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"channel":"webhook"`)
	assert.Contains(t, string(data), `"reply":"re: ping"`)
}

func TestDrain_SkipsBadJobs(t *testing.T) {
	proc := &echoProcessor{}
	d, dir := newDrainer(t, proc, nil)

	enqueue(t, d, "1.json", `{not json`)
	enqueue(t, d, "2.json", `{"channel":"telegram","target":"1","text":"  "}`)

	for range 2 {
		done, err := d.Drain(context.Background())
		require.NoError(t, err)
		assert.True(t, done)
	}
	assert.Empty(t, proc.calls)

	entries, err := os.ReadDir(filepath.Join(dir, "inbox", "done"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	entries, err = os.ReadDir(d.QueueDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDrain_ProcessError(t *testing.T) {
	proc := &echoProcessor{err: errors.New("cancelled")}
	d, _ := newDrainer(t, proc, nil)
	enqueue(t, d, "job.json", `{"text":"hi"}`)

	done, err := d.Drain(context.Background())
	assert.True(t, done)
	assert.Error(t, err)
}
