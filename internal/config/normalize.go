package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscoder()
	c.normalizeDefaults()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.IncomingDir) == "" {
		c.Paths.IncomingDir = defaultIncomingDir
	}
	if strings.TrimSpace(c.Paths.OutgoingDir) == "" {
		c.Paths.OutgoingDir = defaultOutgoingDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.IncomingDir, err = expandPath(c.Paths.IncomingDir); err != nil {
		return fmt.Errorf("paths.incoming_dir: %w", err)
	}
	if c.Paths.OutgoingDir, err = expandPath(c.Paths.OutgoingDir); err != nil {
		return fmt.Errorf("paths.outgoing_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeTranscoder() {
	c.Transcoder.FFmpegBinary = strings.TrimSpace(c.Transcoder.FFmpegBinary)
	if value, ok := os.LookupEnv("VIDEO2AUDIO_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Transcoder.FFmpegBinary = strings.TrimSpace(value)
	}
	if c.Transcoder.FFmpegBinary == "" {
		c.Transcoder.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcoder.FFprobeBinary = strings.TrimSpace(c.Transcoder.FFprobeBinary)
	if value, ok := os.LookupEnv("VIDEO2AUDIO_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.Transcoder.FFprobeBinary = strings.TrimSpace(value)
	}
	if c.Transcoder.FFprobeBinary == "" {
		c.Transcoder.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Transcoder.Workers == 0 {
		c.Transcoder.Workers = defaultWorkers
	}
}

func (c *Config) normalizeDefaults() {
	c.Defaults.Codec = strings.ToLower(strings.TrimSpace(c.Defaults.Codec))
	if c.Defaults.Codec == "" {
		c.Defaults.Codec = defaultCodec
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
