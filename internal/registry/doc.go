// Package registry manages the incoming and outgoing areas.
//
// Listings are read straight from disk on every call. Every client-supplied
// name passes through Validate (or CheckName before a write) so no operation
// can reach outside the two directories. Names starting with "." are reserved
// for in-progress temporary files and are neither listed nor accepted.
//
// Lock provides per-(area, name) mutual exclusion. The transcode worker holds
// it across a file's validate, convert, and delete sequence; cleanup holds it
// for each removal.
package registry
