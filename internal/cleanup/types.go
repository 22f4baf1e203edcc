// Package cleanup removes old files from the directories the assistant
// only ever appends to: the inbox archive and the download directory.
package cleanup

import "time"

// Stats holds statistics about one cleanup run.
type Stats struct {
	FilesDeleted int           // Number of files removed
	BytesFreed   int64         // Bytes freed
	Duration     time.Duration // Time taken for cleanup
}

// Config holds configuration for cleanup operations.
type Config struct {
	TTLDays int      // Files older than this are removed
	Dirs    []string // Directories to scan; missing ones are skipped
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Runner performs cleanup runs.
type Runner struct {
	config  Config
	stats   Stats
	lastRun time.Time
}

// NewRunner creates a new cleanup runner.
func NewRunner(config Config) *Runner {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Runner{
		config: config,
	}
}
