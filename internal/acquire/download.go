package acquire

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"emoroute/internal/dataset"
	"emoroute/internal/logging"
)

// fetchURL downloads one archive and unpacks it into the dataset root. A
// response that is not a zip archive is stored under its URL base name.
func (f *Fetcher) fetchURL(ctx context.Context, d *dataset.Descriptor, rawURL string) (int, int64, error) {
	f.logger.Debug("downloading dataset archive",
		logging.String(logging.FieldDataset, d.Key),
		logging.String("url", rawURL),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, 0, wrapDownload("download", rawURL, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, 0, wrapDownload("download", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, statusError(rawURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.LocalRoot), "."+d.Key+"-*.download")
	if err != nil {
		return 0, 0, wrapDownload("download", "create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	var dst io.Writer = tmp
	if f.opts.Progress != nil {
		dst = &progressWriter{w: tmp, total: resp.ContentLength, report: func(n, total int64) {
			f.opts.Progress(d.Key, n, total)
		}}
	}
	size, err := io.Copy(dst, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, 0, wrapDownload("download", rawURL, err)
	}

	files, err := extractZip(tmpPath, d.LocalRoot)
	if errors.Is(err, zip.ErrFormat) {
		name := archiveName(rawURL)
		if err := os.Rename(tmpPath, filepath.Join(d.LocalRoot, name)); err != nil {
			return 0, size, wrapDownload("store", name, err)
		}
		return 1, size, nil
	}
	return files, size, err
}

// extractZip unpacks archive into root. Entries that would land outside
// root are rejected; macOS resource forks and hidden entries are skipped.
func extractZip(archive, root string) (int, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return 0, wrapDownload("extract", filepath.Base(archive), err)
	}
	defer zr.Close()

	cleanRoot := filepath.Clean(root)
	files := 0
	for _, entry := range zr.File {
		target := filepath.Join(cleanRoot, filepath.FromSlash(entry.Name))
		if target != cleanRoot && !strings.HasPrefix(target, cleanRoot+string(os.PathSeparator)) {
			return files, wrapDownload("extract", entry.Name, errors.New("entry escapes dataset root"))
		}
		if skipEntry(entry.Name) {
			continue
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, wrapDownload("extract", entry.Name, err)
			}
			continue
		}
		if err := extractEntry(entry, target); err != nil {
			return files, wrapDownload("extract", entry.Name, err)
		}
		files++
	}
	return files, nil
}

// skipEntry reports whether any component of an archive path is hidden or
// a __MACOSX folder.
func skipEntry(name string) bool {
	for _, part := range strings.Split(strings.Trim(name, "/"), "/") {
		if part == "__MACOSX" || (strings.HasPrefix(part, ".") && part != ".") {
			return true
		}
	}
	return false
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func archiveName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return "download.bin"
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	report  func(written, total int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	total := p.total
	if total <= 0 {
		total = -1
	}
	p.report(p.written, total)
	return n, err
}
