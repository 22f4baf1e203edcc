// Package cron implements the catch-up scheduler: cron expression matching,
// the directive store, the reconciliation checkpoint and the periodic pass
// that fires directives for every missed minute.
package cron

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aatumaykin/microbot/internal/logger"
)

const (
	// SchedulesFilename is the directive store file within the data directory
	SchedulesFilename = "schedules.txt"

	// StateFilename is the checkpoint file within the data directory
	StateFilename = "schedules_state.json"
)

// ErrDirectiveNotFound is returned by Remove for an unknown id.
var ErrDirectiveNotFound = errors.New("directive not found")

// Storage persists schedule directives as plain text, one per line:
//
//	id|cron|chat|type|content
//
// Lines are only appended or removed; a rewrite replaces the whole file atomically.
type Storage struct {
	filePath string         // Full path to the store file
	logger   *logger.Logger // Logger instance for storage operations
	mu       sync.Mutex
}

// NewStorage creates a new Storage for the directive file in dataDir.
//
// Parameters:
//   - dataDir: Directory holding schedules.txt
//   - logger: Logger instance for storage operations
//
// Returns:
//   - *Storage: A new storage instance ready for use
func NewStorage(dataDir string, log *logger.Logger) *Storage {
	if log == nil {
		log = logger.Nop()
	}
	return &Storage{
		filePath: filepath.Join(dataDir, SchedulesFilename),
		logger:   log,
	}
}

// Path returns the store file path.
func (s *Storage) Path() string {
	return s.filePath
}

// Load reads every non-empty line. Lines that do not parse are returned with
// a nil Directive so callers can preserve them.
// Returns an empty slice if the file doesn't exist.
func (s *Storage) Load() ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Storage) load() ([]Line, error) {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return []Line{}, nil
	}
	if err != nil {
		s.logger.Error("failed to read schedules file", err,
			logger.Field{Key: "file", Value: s.filePath})
		return nil, err
	}

	var lines []Line
	for lineNum, raw := range strings.Split(string(data), "\n") {
		raw = strings.TrimRight(raw, "\r")
		if raw == "" {
			continue
		}
		line := Line{Raw: raw}
		if d, ok := ParseLine(raw); ok {
			line.Directive = &d
		} else {
			s.logger.Debug("skipping malformed schedule line",
				logger.Field{Key: "file", Value: s.filePath},
				logger.Field{Key: "line", Value: lineNum + 1})
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// List returns the parsed directives only.
func (s *Storage) List() ([]Directive, error) {
	lines, err := s.Load()
	if err != nil {
		return nil, err
	}
	directives := make([]Directive, 0, len(lines))
	for _, l := range lines {
		if l.Directive != nil {
			directives = append(directives, *l.Directive)
		}
	}
	return directives, nil
}

// Append adds a directive at the end of the store.
//
// Parameters:
//   - d: The directive to append
//
// Returns:
//   - error: Error if the directive cannot be written
func (s *Storage) Append(d Directive) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.load()
	if err != nil {
		return err
	}
	lines = append(lines, Line{Raw: d.Format(), Directive: &d})
	if err := s.rewrite(lines); err != nil {
		return err
	}

	s.logger.Debug("directive appended to storage",
		logger.Field{Key: "id", Value: d.ID},
		logger.Field{Key: "file", Value: s.filePath})
	return nil
}

// Remove deletes every line whose directive has the given id.
//
// Returns:
//   - error: ErrDirectiveNotFound if no line carries the id
func (s *Storage) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.load()
	if err != nil {
		return err
	}

	kept := make([]Line, 0, len(lines))
	removed := 0
	for _, l := range lines {
		if l.Directive != nil && l.Directive.ID == id {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	if removed == 0 {
		return ErrDirectiveNotFound
	}

	if err := s.rewrite(kept); err != nil {
		return err
	}

	s.logger.Debug("directive removed from storage",
		logger.Field{Key: "id", Value: id},
		logger.Field{Key: "file", Value: s.filePath})
	return nil
}

// RemoveFired drops the directives with the given ids from the current file
// content. The file is re-read under the store lock, so directives appended or
// removed since the caller's Load are kept as they are. Returns the number of
// lines dropped.
func (s *Storage) RemoveFired(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.load()
	if err != nil {
		return 0, err
	}
	kept := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Directive != nil && drop[l.Directive.ID] {
			continue
		}
		kept = append(kept, l)
	}
	removed := len(lines) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.rewrite(kept); err != nil {
		return 0, err
	}

	s.logger.Debug("fired directives removed from storage",
		logger.Field{Key: "ids", Value: ids},
		logger.Field{Key: "file", Value: s.filePath})
	return removed, nil
}

// Rewrite replaces the store content with lines using an atomic write.
func (s *Storage) Rewrite(lines []Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewrite(lines)
}

func (s *Storage) rewrite(lines []Line) error {
	raws := make([]string, len(lines))
	for i, l := range lines {
		raws[i] = l.Raw
	}
	data := strings.Join(raws, "\n")
	if data != "" {
		data += "\n"
	}

	if err := writeFileAtomic(s.filePath, []byte(data)); err != nil {
		s.logger.Error("failed to write schedules file", err,
			logger.Field{Key: "file", Value: s.filePath})
		return err
	}
	return nil
}

// writeFileAtomic writes data to a temporary file in the target directory,
// syncs it and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
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
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
