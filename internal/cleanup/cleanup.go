package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/aatumaykin/microbot/internal/logger"
)

// FileInfo describes a file considered for removal.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Run removes expired files from every configured directory.
func (r *Runner) Run(log *logger.Logger) (Stats, error) {
	if log == nil {
		log = logger.Nop()
	}
	start := r.config.Now()
	cutoff := start.AddDate(0, 0, -r.config.TTLDays)
	stats := Stats{}

	var errs []error
	for _, dir := range r.config.Dirs {
		files, err := ListFiles(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, f := range files {
			if !f.ModTime.Before(cutoff) {
				continue
			}
			if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				log.Error("failed to remove expired file", err, logger.Field{Key: "path", Value: f.Path})
				continue
			}
			stats.FilesDeleted++
			stats.BytesFreed += f.Size
		}
	}

	stats.Duration = r.config.Now().Sub(start)
	r.stats = stats
	r.lastRun = start
	return stats, errors.Join(errs...)
}

// Job returns the body for a periodic scheduler entry.
func (r *Runner) Job(log *logger.Logger) func(ctx context.Context) {
	if log == nil {
		log = logger.Nop()
	}
	return func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}
		stats, err := r.Run(log)
		if err != nil {
			log.Error("cleanup failed", err)
		}
		if stats.FilesDeleted > 0 {
			log.Info(fmt.Sprintf("cleanup completed: deleted %d files", stats.FilesDeleted),
				logger.Field{Key: "files_deleted", Value: stats.FilesDeleted},
				logger.Field{Key: "bytes_freed", Value: stats.BytesFreed},
				logger.Field{Key: "duration_ms", Value: stats.Duration.Milliseconds()})
		} else {
			log.Debug("cleanup completed: nothing expired")
		}
	}
}

// ListFiles returns the regular files below dir. A missing dir yields none.
func ListFiles(dir string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{Path: path, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return files, nil
}

// GetStats returns the statistics of the last run.
func (r *Runner) GetStats() Stats {
	return r.stats
}

// GetLastRun returns the start time of the last run.
func (r *Runner) GetLastRun() time.Time {
	return r.lastRun
}
