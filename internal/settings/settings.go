package settings

import (
	"errors"
	"fmt"
	"strings"
)

// Codec names a supported output audio encoding.
type Codec string

const (
	CodecMP3  Codec = "mp3"
	CodecAAC  Codec = "aac"
	CodecFLAC Codec = "flac"
	CodecWAV  Codec = "wav"
)

// Codecs lists every supported codec in display order.
var Codecs = []Codec{CodecMP3, CodecAAC, CodecFLAC, CodecWAV}

// ErrValidation is matched by every settings validation failure.
var ErrValidation = errors.New("invalid settings")

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrValidation, e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ErrorKind classifies the error for front-end status mapping.
func (e *ValidationError) ErrorKind() string { return "validation" }

// ParseCodec resolves a codec name case-insensitively.
func ParseCodec(value string) (Codec, error) {
	candidate := Codec(strings.ToLower(strings.TrimSpace(value)))
	if candidate.Valid() {
		return candidate, nil
	}
	return "", &ValidationError{Field: "codec", Value: value, Reason: "must be one of mp3, aac, flac, wav"}
}

// Valid reports whether c is a supported codec.
func (c Codec) Valid() bool {
	switch c {
	case CodecMP3, CodecAAC, CodecFLAC, CodecWAV:
		return true
	}
	return false
}

// Lossless reports whether bitrate is meaningless for the codec.
func (c Codec) Lossless() bool {
	return c == CodecFLAC || c == CodecWAV
}

// Extension returns the canonical output file extension including the dot.
func (c Codec) Extension() string {
	switch c {
	case CodecAAC:
		return ".m4a"
	case CodecFLAC:
		return ".flac"
	case CodecWAV:
		return ".wav"
	default:
		return ".mp3"
	}
}

// EncoderName returns the ffmpeg audio encoder for the codec.
func (c Codec) EncoderName() string {
	switch c {
	case CodecAAC:
		return "aac"
	case CodecFLAC:
		return "flac"
	case CodecWAV:
		return "pcm_s16le"
	default:
		return "libmp3lame"
	}
}

// Muxer returns the ffmpeg output format for the codec's container.
func (c Codec) Muxer() string {
	switch c {
	case CodecAAC:
		return "ipod"
	case CodecFLAC:
		return "flac"
	case CodecWAV:
		return "wav"
	default:
		return "mp3"
	}
}

// DefaultBitrate is the floor used when a bitrate is detected from the source (kbps).
func (c Codec) DefaultBitrate() int {
	switch c {
	case CodecMP3:
		return 192
	case CodecAAC:
		return 128
	}
	return 0
}

// MaxBitrate is the ceiling used when a bitrate is detected from the source (kbps).
func (c Codec) MaxBitrate() int {
	switch c {
	case CodecMP3:
		return 320
	case CodecAAC:
		return 256
	}
	return 0
}

// Settings is the encoding configuration applied to every conversion in a batch.
type Settings struct {
	Codec      Codec `json:"codec"`
	Bitrate    int   `json:"bitrate"`
	SampleRate int   `json:"sample_rate"`
	Channels   int   `json:"channels"`
}

// Default returns the configuration used when nothing else was applied.
func Default() Settings {
	return Settings{Codec: CodecMP3, Bitrate: 192, SampleRate: 44100, Channels: 2}
}

// Validate checks every field and returns a *ValidationError for the first bad one.
func (s Settings) Validate() error {
	if !s.Codec.Valid() {
		return &ValidationError{Field: "codec", Value: string(s.Codec), Reason: "must be one of mp3, aac, flac, wav"}
	}
	if s.Bitrate <= 0 {
		return &ValidationError{Field: "bitrate", Value: s.Bitrate, Reason: "must be a positive integer (kbps)"}
	}
	if s.SampleRate <= 0 {
		return &ValidationError{Field: "sample_rate", Value: s.SampleRate, Reason: "must be a positive integer (Hz)"}
	}
	if s.Channels <= 0 {
		return &ValidationError{Field: "channels", Value: s.Channels, Reason: "must be a positive integer"}
	}
	return nil
}

// EffectiveBitrate returns the bitrate passed to the encoder, or 0 for lossless codecs.
func (s Settings) EffectiveBitrate() int {
	if s.Codec.Lossless() {
		return 0
	}
	return s.Bitrate
}

// OutputName maps an incoming file name to its converted name.
func (s Settings) OutputName(input string) string {
	stem := input
	if idx := strings.LastIndexByte(input, '.'); idx > 0 {
		stem = input[:idx]
	}
	return stem + s.Codec.Extension()
}

func (s Settings) String() string {
	if s.Codec.Lossless() {
		return fmt.Sprintf("%s %dHz %dch", s.Codec, s.SampleRate, s.Channels)
	}
	return fmt.Sprintf("%s %dk %dHz %dch", s.Codec, s.Bitrate, s.SampleRate, s.Channels)
}
