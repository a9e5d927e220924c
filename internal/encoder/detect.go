package encoder

import (
	"context"
	"fmt"

	"video2audio/internal/media/ffprobe"
	"video2audio/internal/settings"
)

// Fallbacks used when the source does not report a value.
const (
	fallbackSampleRate = 44100
	fallbackChannels   = 2
)

// Detected holds audio properties read from a source file.
type Detected struct {
	BitRate    int64 // bits per second, 0 when unknown
	SampleRate int
	Channels   int
}

// Inspector reads media metadata. ffprobe.Inspect satisfies it.
type Inspector func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Detect probes path and returns the properties of its first audio stream.
func Detect(ctx context.Context, inspect Inspector, binary, path string) (Detected, error) {
	if inspect == nil {
		inspect = ffprobe.Inspect
	}
	result, err := inspect(ctx, binary, path)
	if err != nil {
		return Detected{}, fmt.Errorf("detect audio properties: %w", err)
	}
	stream, ok := result.FirstAudioStream()
	if !ok {
		return Detected{}, fmt.Errorf("detect audio properties: %s has no audio stream", path)
	}
	detected := Detected{
		BitRate:    result.AudioBitRate(stream),
		SampleRate: stream.SampleRateHz(),
		Channels:   stream.Channels,
	}
	if detected.SampleRate <= 0 {
		detected.SampleRate = fallbackSampleRate
	}
	if detected.Channels <= 0 {
		detected.Channels = fallbackChannels
	}
	return detected, nil
}

// ChooseBitrate picks an output bitrate in kbps for codec given the source
// bitrate in bits per second. Unknown or low sources get the codec default;
// high sources are capped at the codec maximum. Lossless codecs return 0.
func ChooseBitrate(codec settings.Codec, sourceBPS int64) int {
	if codec.Lossless() {
		return 0
	}
	floor := codec.DefaultBitrate()
	if sourceBPS <= 0 || sourceBPS < int64(floor)*1000 {
		return floor
	}
	return int(min(sourceBPS, int64(codec.MaxBitrate())*1000) / 1000)
}

// Overrides marks which settings fields the user set explicitly.
type Overrides struct {
	Bitrate    bool
	SampleRate bool
	Channels   bool
}

// ApplyDetected fills every field not explicitly overridden from detected.
func ApplyDetected(base settings.Settings, detected Detected, explicit Overrides) settings.Settings {
	out := base
	if !explicit.Bitrate {
		if bitrate := ChooseBitrate(base.Codec, detected.BitRate); bitrate > 0 {
			out.Bitrate = bitrate
		}
	}
	if !explicit.SampleRate && detected.SampleRate > 0 {
		out.SampleRate = detected.SampleRate
	}
	if !explicit.Channels && detected.Channels > 0 {
		out.Channels = detected.Channels
	}
	return out
}
