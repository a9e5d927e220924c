package config

const (
	defaultConfigPath         = "~/.config/video2audio/config.toml"
	defaultIncomingDir        = "~/.local/share/video2audio/incoming"
	defaultOutgoingDir        = "~/.local/share/video2audio/outgoing"
	defaultLogDir             = "~/.local/share/video2audio/logs"
	defaultAPIBind            = "127.0.0.1:7488"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultWorkers            = 2
	defaultWatchSettleSeconds = 2
	defaultCodec              = "mp3"
	defaultBitrate            = 192
	defaultSampleRate         = 44100
	defaultChannels           = 2
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
	defaultNtfyTimeoutSeconds = 10
	maxWorkers                = 16
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IncomingDir: defaultIncomingDir,
			OutgoingDir: defaultOutgoingDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Transcoder: Transcoder{
			FFmpegBinary:       defaultFFmpegBinary,
			FFprobeBinary:      defaultFFprobeBinary,
			Workers:            defaultWorkers,
			WatchSettleSeconds: defaultWatchSettleSeconds,
		},
		Defaults: Defaults{
			Codec:      defaultCodec,
			Bitrate:    defaultBitrate,
			SampleRate: defaultSampleRate,
			Channels:   defaultChannels,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
	}
}
