package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscoder(); err != nil {
		return err
	}
	if err := c.validateDefaults(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeoutSeconds < 0 {
		return errors.New("notifications.request_timeout_seconds must be >= 0")
	}
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if filepath.Clean(c.Paths.IncomingDir) == filepath.Clean(c.Paths.OutgoingDir) {
		return errors.New("paths.incoming_dir and paths.outgoing_dir must be different directories")
	}
	return nil
}

func (c *Config) validateTranscoder() error {
	if c.Transcoder.Workers < 1 || c.Transcoder.Workers > maxWorkers {
		return fmt.Errorf("transcoder.workers must be between 1 and %d", maxWorkers)
	}
	if c.Transcoder.TimeoutSeconds < 0 {
		return errors.New("transcoder.timeout_seconds must be >= 0 (0 disables the watchdog)")
	}
	if c.Transcoder.WatchSettleSeconds < 0 {
		return errors.New("transcoder.watch_settle_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateDefaults() error {
	if err := c.InitialSettings().Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
