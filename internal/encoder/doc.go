// Package encoder wraps the external ffmpeg tool behind the narrow Encoder
// interface used by the transcode worker.
//
// FFmpeg builds a fixed argument template from a settings snapshot and runs it
// through a CommandRunner, which tests replace with a fake. Failures surface as
// *ConversionError carrying the exit code and the tail of stderr. Detect and
// ChooseBitrate implement source-aware defaults for one-shot conversions.
package encoder
