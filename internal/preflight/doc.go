// Package preflight provides readiness checks for the directories and
// external binaries video2audio depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check as a
//     warning; processing still starts so a fixed permission takes effect
//     without a restart.
//   - The CLI "video2audio status" command renders the same results.
package preflight
