// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and decodes streams and container format. Helpers on
// Result and Stream pick out the first audio stream and parse the string
// numbers ffprobe reports (sample rate, bitrate, duration).
package ffprobe
