// Package inbox drains the file queue under <data_dir>/inbox. Other processes
// drop JSON jobs into queue/; each pass takes one job, runs it through the
// assistant and files it under done/ together with the reply.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aatumaykin/microbot/internal/channels"
	"github.com/aatumaykin/microbot/internal/logger"
)

const (
	defaultChannel = "webhook"
	defaultTarget  = "0"
)

// Job is one queued request.
type Job struct {
	Channel     string `json:"channel,omitempty"`
	Target      string `json:"target,omitempty"`
	UserName    string `json:"user_name,omitempty"`
	Text        string `json:"text,omitempty"`
	ResponseURL string `json:"response_url,omitempty"`
	Reply       string `json:"reply,omitempty"`
}

// Processor runs a request through the assistant.
type Processor interface {
	Process(ctx context.Context, chat, userName, text string) (string, error)
}

// Config configures a Drainer.
type Config struct {
	DataDir string
	// Senders maps a job channel ("telegram") to the transport that delivers the reply.
	Senders   map[string]channels.Sender
	Processor Processor
	Logger    *logger.Logger
}

// Drainer processes queued jobs.
type Drainer struct {
	queueDir string
	doneDir  string
	senders  map[string]channels.Sender
	proc     Processor
	logger   *logger.Logger
}

// New creates the queue directories and returns a Drainer.
func New(cfg Config) (*Drainer, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	d := &Drainer{
		queueDir: filepath.Join(cfg.DataDir, "inbox", "queue"),
		doneDir:  filepath.Join(cfg.DataDir, "inbox", "done"),
		senders:  cfg.Senders,
		proc:     cfg.Processor,
		logger:   cfg.Logger,
	}
	for _, dir := range []string{d.queueDir, d.doneDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}
	return d, nil
}

// QueueDir returns the directory jobs are dropped into.
func (d *Drainer) QueueDir() string {
	return d.queueDir
}

// Drain takes the first queued job, if any. It reports whether a job file
// was consumed. A malformed job is removed and skipped.
func (d *Drainer) Drain(ctx context.Context) (bool, error) {
	name, err := d.next()
	if err != nil || name == "" {
		return false, err
	}

	path := filepath.Join(d.queueDir, name)
	data, readErr := os.ReadFile(path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to remove job %s: %w", name, err)
	}

	var job Job
	if readErr == nil {
		if err := json.Unmarshal(data, &job); err != nil {
			d.logger.WarnCtx(ctx, "malformed inbox job skipped",
				logger.Field{Key: "file", Value: name},
				logger.Field{Key: "error", Value: err.Error()})
			return true, nil
		}
	}
	if strings.TrimSpace(job.Text) == "" {
		return true, nil
	}
	if job.Channel == "" {
		job.Channel = defaultChannel
	}
	chat := job.Target
	if chat == "" {
		chat = defaultTarget
	}

	reply, err := d.proc.Process(ctx, chat, job.UserName, job.Text)
	if err != nil {
		return true, fmt.Errorf("failed to process job %s: %w", name, err)
	}
	job.Reply = reply
	d.deliver(ctx, job, chat)

	if err := d.archive(name, job); err != nil {
		return true, err
	}
	d.logger.InfoCtx(ctx, "inbox job processed",
		logger.Field{Key: "file", Value: name},
		logger.Field{Key: "channel", Value: job.Channel})
	return true, nil
}

// Run is the periodic job body.
func (d *Drainer) Run(ctx context.Context) {
	if _, err := d.Drain(ctx); err != nil {
		d.logger.ErrorCtx(ctx, "inbox drain failed", err)
	}
}

func (d *Drainer) next() (string, error) {
	entries, err := os.ReadDir(d.queueDir)
	if err != nil {
		return "", fmt.Errorf("failed to list inbox: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			return e.Name(), nil
		}
	}
	return "", nil
}

func (d *Drainer) deliver(ctx context.Context, job Job, chat string) {
	sender, ok := d.senders[job.Channel]
	if !ok {
		d.logger.DebugCtx(ctx, "no transport for inbox channel, reply kept in done/",
			logger.Field{Key: "channel", Value: job.Channel})
		return
	}
	if err := sender.SendMessage(ctx, chat, job.Reply); err != nil {
		d.logger.ErrorCtx(ctx, "failed to deliver inbox reply", err,
			logger.Field{Key: "channel", Value: job.Channel},
			logger.Field{Key: "target", Value: chat})
	}
}

func (d *Drainer) archive(name string, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d.doneDir, name), data, 0644); err != nil {
		return fmt.Errorf("failed to archive job %s: %w", name, err)
	}
	return nil
}
