package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFile streams src to dst and returns the number of bytes written. The
// data lands in a hidden sibling first and is renamed over dst, so readers
// never observe a partial file.
func CopyFile(src, dst string) (int64, error) {
	return copyAtomic(src, dst, nil)
}

// CopyFileVerified copies like CopyFile, then re-reads dst and compares its
// SHA-256 with the source stream. dst is removed on mismatch.
func CopyFileVerified(src, dst string) (int64, error) {
	hasher := sha256.New()
	written, err := copyAtomic(src, dst, hasher)
	if err != nil {
		return 0, err
	}
	want := hex.EncodeToString(hasher.Sum(nil))
	got, err := SHA256File(dst)
	if err != nil {
		return 0, err
	}
	if got != want {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("copy hash mismatch for %s: file corrupted during copy", filepath.Base(dst))
	}
	return written, nil
}

// SHA256File returns the hex SHA-256 digest of path.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func copyAtomic(src, dst string, sourceHash io.Writer) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	var reader io.Reader = in
	if sourceHash != nil {
		reader = io.TeeReader(in, sourceHash)
	}
	written, err := io.Copy(tmp, reader)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if written != info.Size() {
		return 0, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, err
	}
	return written, nil
}
