// Package database persists finished recovery sessions in SQLite.
//
// Each terminal session is stored as one row in recovery_sessions with its
// counters and log, plus one row per image entry in recovery_entries.
// Sessions are written once they reach a terminal status, restored at
// startup and deleted when the session is cleaned up.
//
// The database uses WAL mode and creates its schema on open.
package database
