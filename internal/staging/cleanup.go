package staging

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"emoroute/internal/logging"
)

// LeftoverPatterns match temporary files written next to their final path.
var LeftoverPatterns = []string{".*.part", ".*.download"}

// CleanResult contains the outcome of a cleanup pass.
type CleanResult struct {
	Removed []string
	Bytes   int64
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// IsLeftover reports whether name looks like a staged temporary file.
func IsLeftover(name string) bool {
	for _, pattern := range LeftoverPatterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// CleanLeftovers removes leftover temporary files under dir that are older
// than maxAge, descending at most maxDepth directory levels (0 means dir
// itself only). A missing dir is not an error.
func CleanLeftovers(ctx context.Context, dir string, maxDepth int, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}
	root := filepath.Clean(dir)
	cutoff := time.Now().Add(-maxAge)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: walkErr})
			return nil
		}
		if entry.IsDir() {
			if path != root && depth(root, path) > maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !IsLeftover(entry.Name()) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove leftover temporary file", "staging_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on "+root),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			return nil
		}
		result.Removed = append(result.Removed, path)
		result.Bytes += info.Size()
		if logger != nil {
			logger.Debug("removed leftover temporary file",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime()).Round(time.Second)),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
	}
	return result
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// Usage returns the total size and file count below path. Unreadable
// entries are skipped.
func Usage(path string) (int64, int, error) {
	var size int64
	var files int
	err := filepath.WalkDir(path, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		size += info.Size()
		files++
		return nil
	})
	return size, files, err
}
