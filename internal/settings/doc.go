// Package settings defines the audio encoding configuration and the store that
// holds the one active value for the whole process.
//
// Codec carries the per-codec policy (extension, ffmpeg encoder and muxer,
// whether bitrate applies). Store.Apply is all-or-nothing: an invalid value is
// rejected with a *ValidationError and the previous settings stay active.
package settings
