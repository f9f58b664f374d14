// Package history persists one row per completed sort cycle in SQLite.
// The CSV log is the operator-facing export; history backs the status and
// recent-activity queries and survives CSV rotation.
package history
