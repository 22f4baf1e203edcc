// Package session keeps the per-chat conversation history.
//
// History is bounded; messages pushed out of the window are appended to a
// per-chat summary log under <data_dir>/memory so older context stays on disk.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aatumaykin/microbot/internal/llm"
	"github.com/aatumaykin/microbot/internal/logger"
)

const (
	minHistoryMessages = 4
	summaryContentMax  = 160
	summaryMaxBytes    = 50000
	summaryKeepLines   = 200
)

// Config configures a Manager.
type Config struct {
	DataDir    string
	MaxHistory int  // turns; the window keeps max(4, 2*MaxHistory) messages
	Persist    bool // mirror live history to sessions/<chat>.json
	Logger     *logger.Logger
	Now        func() time.Time
}

// Manager holds conversation state for every chat.
type Manager struct {
	mu      sync.Mutex
	chats   map[string][]llm.Message
	loaded  map[string]bool
	limit   int
	dataDir string
	persist bool
	logger  *logger.Logger
	now     func() time.Time
}

// NewManager creates a session manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if err := os.MkdirAll(filepath.Join(cfg.DataDir, "memory"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}
	if cfg.Persist {
		if err := os.MkdirAll(filepath.Join(cfg.DataDir, "sessions"), 0755); err != nil {
			return nil, fmt.Errorf("failed to create sessions directory: %w", err)
		}
	}

	return &Manager{
		chats:   make(map[string][]llm.Message),
		loaded:  make(map[string]bool),
		limit:   Limit(cfg.MaxHistory),
		dataDir: cfg.DataDir,
		persist: cfg.Persist,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}, nil
}

// Limit returns the number of messages kept for maxHistory turns.
func Limit(maxHistory int) int {
	return max(minHistoryMessages, 2*maxHistory)
}

// History returns a copy of the chat history.
func (m *Manager) History(chat string) []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]llm.Message(nil), m.load(chat)...)
}

// Append adds a message and moves overflow to the summary log.
func (m *Manager) Append(chat string, role llm.Role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := append(m.load(chat), llm.Message{Role: role, Content: content})

	var overflow []llm.Message
	if len(msgs) > m.limit {
		cut := len(msgs) - m.limit
		overflow = append(overflow, msgs[:cut]...)
		msgs = append([]llm.Message(nil), msgs[cut:]...)
	}
	m.chats[chat] = msgs

	var errs []error
	if len(overflow) > 0 {
		if err := m.summarize(chat, overflow); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.save(chat); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Clear drops the chat history. The summary log is kept.
func (m *Manager) Clear(chat string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.chats, chat)
	m.loaded[chat] = true
	if !m.persist {
		return nil
	}
	if err := os.Remove(m.sessionPath(chat)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// SummaryTail returns the last limit lines of the chat summary log.
func (m *Manager) SummaryTail(chat string, limit int) ([]string, error) {
	data, err := os.ReadFile(m.summaryPath(chat))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	lines := nonEmptyLines(string(data))
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}

// SummaryPath returns the summary log path for chat.
func (m *Manager) SummaryPath(chat string) string {
	return m.summaryPath(chat)
}

// load returns the in-memory history, reading the session file once when
// persistence is on. Caller holds mu.
func (m *Manager) load(chat string) []llm.Message {
	if m.loaded[chat] || !m.persist {
		return m.chats[chat]
	}
	m.loaded[chat] = true

	data, err := os.ReadFile(m.sessionPath(chat))
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("failed to read session file",
				logger.Field{Key: "chat", Value: chat},
				logger.Field{Key: "error", Value: err.Error()})
		}
		return m.chats[chat]
	}

	var msgs []llm.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		m.logger.Warn("corrupt session file ignored",
			logger.Field{Key: "chat", Value: chat},
			logger.Field{Key: "error", Value: err.Error()})
		return m.chats[chat]
	}
	if len(msgs) > m.limit {
		msgs = msgs[len(msgs)-m.limit:]
	}
	m.chats[chat] = msgs
	return msgs
}

func (m *Manager) save(chat string) error {
	if !m.persist {
		return nil
	}
	data, err := json.MarshalIndent(m.chats[chat], "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := writeFileAtomic(m.sessionPath(chat), data); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// summarize appends overflow lines and trims the log when it grows too big.
func (m *Manager) summarize(chat string, overflow []llm.Message) error {
	stamp := m.now().Format("2006-01-02 15:04")
	var b strings.Builder
	for _, msg := range overflow {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", stamp, msg.Role, SummaryContent(msg.Content))
	}

	path := m.summaryPath(chat)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open summary: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close summary: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() <= summaryMaxBytes {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read summary: %w", err)
	}
	lines := nonEmptyLines(string(data))
	if len(lines) > summaryKeepLines {
		lines = lines[len(lines)-summaryKeepLines:]
	}
	m.logger.Debug("summary trimmed",
		logger.Field{Key: "chat", Value: chat},
		logger.Field{Key: "lines", Value: len(lines)})
	return writeFileAtomic(path, []byte(strings.Join(lines, "\n")+"\n"))
}

// SummaryContent flattens content to one line of at most 160 characters.
func SummaryContent(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) > summaryContentMax {
		return string(runes[:summaryContentMax]) + "..."
	}
	return flat
}

func (m *Manager) summaryPath(chat string) string {
	return filepath.Join(m.dataDir, "memory", "summary_"+safeName(chat)+".md")
}

func (m *Manager) sessionPath(chat string) string {
	return filepath.Join(m.dataDir, "sessions", safeName(chat)+".json")
}

// safeName keeps chat ids usable as file names.
func safeName(chat string) string {
	if chat == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, chat)
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, strings.TrimRight(line, "\r"))
		}
	}
	return out
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
