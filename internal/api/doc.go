// Package api is the operation layer shared by the HTTP server and the IPC
// server.
//
// Service bundles the file registry, the settings store, the transcode worker,
// and the batch tracker behind the operations front ends call: list the
// incoming and outgoing areas, read or apply settings, process files
// synchronously or as a tracked background batch, clear either area, store
// uploads, and resolve downloads.
//
// The package also defines the JSON wire types and HTTPStatus, which maps the
// ErrorKind classification (validation, invalid_name, conversion, cleanup)
// onto response codes. DTOs use camelCase JSON tags for daemon status and
// snake_case for settings, matching the settings file keys.
package api
