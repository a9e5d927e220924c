// Package config loads, normalizes, and validates video2audio configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides for the
// ffmpeg and ffprobe binaries. The Config type centralizes the incoming and
// outgoing areas, the worker pool, the startup encoding settings, logging,
// and the ntfy topic for batch notifications.
//
// Always obtain settings through this package so downstream code receives
// absolute paths and clear validation errors.
package config
