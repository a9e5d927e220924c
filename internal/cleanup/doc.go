// Package cleanup deletes files from the incoming and outgoing areas.
//
// Both operations are best effort: each name is validated through the
// registry and removed under its (area, name) lock, and anything that vanished
// or failed is reported in Result.Errors instead of aborting the call.
package cleanup
