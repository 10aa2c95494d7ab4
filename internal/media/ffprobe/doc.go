// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and decodes streams and container metadata. Helpers on
// Result answer the questions the materializer asks of a source file: its
// first audio stream, sample rate, channel count, and container format.
package ffprobe
