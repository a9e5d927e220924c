package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Result is the subset of ffprobe output needed to pick audio settings.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes one audio stream.
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"`
	BitRate       string `json:"bit_rate"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	ChannelLayout string `json:"channel_layout"`
}

// Format carries the container fields used as fallbacks.
type Format struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

var probeArgs = []string{
	"-v", "error",
	"-hide_banner",
	"-select_streams", "a",
	"-show_entries", "stream=index,codec_name,codec_type,bit_rate,sample_rate,channels,channel_layout:format=duration,bit_rate",
	"-of", "json",
}

// Inspect runs ffprobe on path and decodes its audio streams.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	args := append(append([]string(nil), probeArgs...), "--", path)
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return Parse(output)
}

// Parse decodes ffprobe JSON output.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// FirstAudioStream returns the first audio stream, if any. Streams without a
// codec_type are treated as audio since Inspect selects audio only.
func (r Result) FirstAudioStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if stream.CodecType == "" || strings.EqualFold(stream.CodecType, "audio") {
			return stream, true
		}
	}
	return Stream{}, false
}

// AudioBitRate returns the bitrate of s in bits per second, falling back to
// the container bitrate when the stream does not report one (common for
// Matroska sources).
func (r Result) AudioBitRate(s Stream) int64 {
	if rate := s.BitRateBPS(); rate > 0 {
		return rate
	}
	return positiveInt(r.Format.BitRate)
}

// DurationSeconds returns the container duration, or 0 when unknown.
func (r Result) DurationSeconds() float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// SampleRateHz returns the stream sample rate, or 0 when unavailable.
func (s Stream) SampleRateHz() int {
	return int(positiveInt(s.SampleRate))
}

// BitRateBPS returns the stream bitrate in bits per second, or 0 when unavailable.
func (s Stream) BitRateBPS() int64 {
	return positiveInt(s.BitRate)
}

// positiveInt parses ffprobe numeric strings, which may be "N/A" or carry a
// fractional part.
func positiveInt(value string) int64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || parsed <= 0 {
		return 0
	}
	return int64(parsed)
}
