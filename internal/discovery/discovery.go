package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"emoroute/internal/dataset"
	"emoroute/internal/logging"
)

// DefaultExtensions are the audio containers picked up when no list is given.
var DefaultExtensions = []string{".wav", ".flac", ".mp3", ".ogg", ".m4a"}

// Listing maps dataset keys to sorted absolute file paths.
type Listing map[string][]string

// Count returns the number of files across all datasets.
func (l Listing) Count() int {
	total := 0
	for _, paths := range l {
		total += len(paths)
	}
	return total
}

// Scanner walks dataset roots.
type Scanner struct {
	extensions map[string]struct{}
	logger     *slog.Logger
}

// NewScanner builds a scanner matching the given extensions, case-insensitively.
func NewScanner(extensions []string, logger *slog.Logger) *Scanner {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return &Scanner{extensions: set, logger: logging.NewComponentLogger(logger, "discovery")}
}

// Scan lists every descriptor's root. A missing root yields an empty list and
// a warning; any other walk failure aborts the scan.
func (s *Scanner) Scan(ctx context.Context, descriptors []*dataset.Descriptor) (Listing, error) {
	listing := make(Listing, len(descriptors))
	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return listing, err
		}
		paths, err := s.scanRoot(ctx, d.LocalRoot)
		if errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(s.logger, "dataset root missing", "dataset_root_missing",
				logging.String(logging.FieldDataset, d.Key),
				logging.String("root", d.LocalRoot),
				logging.String(logging.FieldErrorHint, "run `emoroute fetch` or set local_path"),
				logging.String(logging.FieldImpact, "dataset contributes no files"),
			)
			listing[d.Key] = []string{}
			continue
		}
		if err != nil {
			return listing, fmt.Errorf("scan %s: %w", d.Key, err)
		}
		s.logger.Debug("dataset scanned",
			logging.String(logging.FieldDataset, d.Key),
			logging.Int("files", len(paths)),
		)
		listing[d.Key] = paths
	}
	return listing, nil
}

func (s *Scanner) scanRoot(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	paths := []string{}
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() {
			if path != root && skipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !entry.Type().IsRegular() {
			return nil
		}
		if _, ok := s.extensions[strings.ToLower(filepath.Ext(name))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// skipDir excludes hidden directories and archive metadata folders.
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "__MACOSX"
}
