package labels

import (
	"path/filepath"
	"strings"

	"emoroute/internal/dataset"
)

// Extraction is the outcome of reading a raw label from a path. Exactly one
// of Raw and Reason is set.
type Extraction struct {
	Raw    string
	Reason string
}

// OK reports whether a raw label was found.
func (e Extraction) OK() bool { return e.Reason == "" }

const (
	ReasonPatternMiss    = "pattern did not match"
	ReasonEmptyCapture   = "empty capture"
	ReasonMissingSegment = "path has no directory at the configured segment"
	ReasonLanguageFilter = "language filter not satisfied"
	ReasonNoConvention   = "dataset has no naming convention"
)

func unresolved(reason string) Extraction { return Extraction{Reason: reason} }

// Extract reads the raw emotion label of path according to d's convention.
func Extract(path string, d *dataset.Descriptor) Extraction {
	switch c := d.Convention.(type) {
	case dataset.PatternConvention:
		return extractPattern(path, d, c)
	case dataset.DirectoryConvention:
		return extractSegment(path, d.LocalRoot, c.Segment, c.LanguageFilter)
	case dataset.UnconstrainedConvention:
		return extractSegment(path, d.LocalRoot, c.Segment, c.LanguageFilter)
	default:
		return unresolved(ReasonNoConvention)
	}
}

func extractPattern(path string, d *dataset.Descriptor, c dataset.PatternConvention) Extraction {
	match := c.Pattern.FindStringSubmatch(filepath.Base(path))
	if match == nil {
		return unresolved(ReasonPatternMiss)
	}
	token := ""
	for _, group := range c.Groups {
		if group < len(match) && match[group] != "" {
			token = match[group]
			break
		}
	}
	if token == "" {
		return unresolved(ReasonEmptyCapture)
	}
	if c.TokenMatch == dataset.MatchLongestPrefix {
		if key, ok := d.LongestPrefix(token); ok {
			token = key
		}
	}
	return Extraction{Raw: token}
}

// extractSegment picks the directory segment levels above the file. The
// segments are relative to root when path lives under it.
func extractSegment(path, root string, segment int, languageFilter string) Extraction {
	dirs := ancestorSegments(path, root)
	if segment < 1 || segment > len(dirs) {
		return unresolved(ReasonMissingSegment)
	}
	label := dirs[len(dirs)-segment]
	if languageFilter != "" {
		found := false
		for i, dir := range dirs {
			if i == len(dirs)-segment {
				continue
			}
			if dir == languageFilter {
				found = true
				break
			}
		}
		if !found {
			return unresolved(ReasonLanguageFilter)
		}
	}
	return Extraction{Raw: label}
}

// ancestorSegments returns the directory names between root (or the file
// system root) and the file, outermost first.
func ancestorSegments(path, root string) []string {
	clean := filepath.Clean(path)
	dir := filepath.Dir(clean)
	if root != "" {
		if rel, err := filepath.Rel(filepath.Clean(root), dir); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			dir = rel
		}
	}
	var segments []string
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == "" || part == "." {
			continue
		}
		segments = append(segments, part)
	}
	return segments
}
