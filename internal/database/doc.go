// Package database provides the SQLite metadata store for the AI media
// gallery.
//
// It persists one MediaItem row per catalogued file: descriptive fields
// extracted from generation metadata, an optional inline payload for
// items without a blob file, and the blob path when one exists.
//
// The database uses WAL mode for improved concurrent read performance
// and includes automatic schema initialization.
package database
