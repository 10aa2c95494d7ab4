// Package transcode converts source audio to the configured output format
// with ffmpeg.
package transcode
