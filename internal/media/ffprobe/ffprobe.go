package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strconv"
	"strings"
)

// Result holds the streams and container of one ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one stream entry. Only audio-relevant fields are decoded.
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"`
	SampleFmt     string `json:"sample_fmt"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	BitsPerSample int    `json:"bits_per_sample"`
}

// Format is the container section.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// Inspect runs ffprobe (binary defaults to "ffprobe") on path and decodes
// its JSON report.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}

	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	output, err := exec.CommandContext(ctx, binary, args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{}, fmt.Errorf("ffprobe inspect %s: %w: %s", path, err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect %s: %w", path, err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// AudioStream returns the first audio stream.
func (r Result) AudioStream() (Stream, bool) {
	i := slices.IndexFunc(r.Streams, func(s Stream) bool {
		return strings.EqualFold(s.CodecType, "audio")
	})
	if i < 0 {
		return Stream{}, false
	}
	return r.Streams[i], true
}

// SampleRate of the first audio stream in Hz, or 0 when unknown.
func (r Result) SampleRate() int {
	stream, _ := r.AudioStream()
	rate, err := strconv.Atoi(strings.TrimSpace(stream.SampleRate))
	if err != nil || rate < 0 {
		return 0
	}
	return rate
}

// Channels of the first audio stream, or 0.
func (r Result) Channels() int {
	stream, _ := r.AudioStream()
	return stream.Channels
}

// HasFormat reports whether name is one of the container's format aliases.
// ffprobe lists them comma-separated, e.g. "mov,mp4,m4a".
func (r Result) HasFormat(name string) bool {
	name = strings.TrimSpace(name)
	return slices.ContainsFunc(strings.Split(r.Format.FormatName, ","), func(alias string) bool {
		return strings.EqualFold(strings.TrimSpace(alias), name)
	})
}

// Matches reports whether the file already has the given container, sample
// rate and channel count.
func (r Result) Matches(format string, sampleRate, channels int) bool {
	return r.HasFormat(format) && r.SampleRate() == sampleRate && r.Channels() == channels
}
