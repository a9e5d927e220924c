// Command video2audio is the command-line front end for the video2audio
// daemon.
//
// Most subcommands talk to a running daemon over its IPC socket: listing and
// uploading files, applying settings, processing batches, clearing the
// incoming and outgoing directories, and tailing the log. `daemon` runs the
// daemon in the foreground; `start` and `stop` manage a detached one.
// `convert` runs ffmpeg on a single local file and needs no daemon.
package main
