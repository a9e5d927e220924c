// Package transcode runs conversion batches.
//
// Worker.Process takes a settings value and a list of incoming names, and
// converts each distinct name on a bounded pool of goroutines. Per file it holds
// the registry lock for (incoming, name) across validate, encode, publish, and
// source removal, so concurrent batches never race on the same file. Output is
// written to a hidden temporary name and renamed into the outgoing area, so a
// listed file is always complete. One file's failure never affects another.
//
// Tracker wraps Worker for fire-and-poll front ends: Start returns a batch ID
// immediately, Get reports per-file state, and Wait blocks until completion.
package transcode
