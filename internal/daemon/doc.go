// Package daemon coordinates the long-running video2audio process.
//
// It wires the conversion service, the HTTP API server, and the optional
// drop-folder watcher into a single lifecycle with flock-based locking to
// prevent multiple instances. Startup runs the preflight checks and logs any
// failures; shutdown waits a bounded time for running batches.
//
// Keep orchestration logic here: conversion, cleanup, and settings rules live
// in their own packages while the daemon focuses on startup, shutdown, and
// transport.
package daemon
