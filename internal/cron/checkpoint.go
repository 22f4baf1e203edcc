package cron

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aatumaykin/microbot/internal/logger"
)

// Checkpoint is the persisted reconciliation progress.
// LastCheckKey never moves backwards; LastFire holds the last fired tick per directive.
type Checkpoint struct {
	LastCheckKey string            `json:"last_check_key,omitempty"`
	LastFire     map[string]string `json:"last_fire"`
}

// CheckpointStore reads and writes the checkpoint JSON file.
type CheckpointStore struct {
	filePath string
	logger   *logger.Logger
}

// NewCheckpointStore creates a store for schedules_state.json in dataDir.
func NewCheckpointStore(dataDir string, log *logger.Logger) *CheckpointStore {
	if log == nil {
		log = logger.Nop()
	}
	return &CheckpointStore{
		filePath: filepath.Join(dataDir, StateFilename),
		logger:   log,
	}
}

// Path returns the checkpoint file path.
func (c *CheckpointStore) Path() string {
	return c.filePath
}

// Load returns the stored checkpoint. A missing or unreadable file yields an
// empty checkpoint: the reconciler then treats the pass as a first run.
func (c *CheckpointStore) Load() Checkpoint {
	cp := Checkpoint{LastFire: map[string]string{}}

	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("failed to read checkpoint, starting fresh",
				logger.Field{Key: "file", Value: c.filePath},
				logger.Field{Key: "error", Value: err.Error()})
		}
		return cp
	}

	if err := json.Unmarshal(data, &cp); err != nil {
		c.logger.Warn("corrupt checkpoint, starting fresh",
			logger.Field{Key: "file", Value: c.filePath},
			logger.Field{Key: "error", Value: err.Error()})
		return Checkpoint{LastFire: map[string]string{}}
	}
	if cp.LastFire == nil {
		cp.LastFire = map[string]string{}
	}
	return cp
}

// Save atomically replaces the checkpoint file.
func (c *CheckpointStore) Save(cp Checkpoint) error {
	if cp.LastFire == nil {
		cp.LastFire = map[string]string{}
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := writeFileAtomic(c.filePath, data); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}
