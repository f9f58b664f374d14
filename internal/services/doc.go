// Package services defines the shared error taxonomy for sorter components.
//
// Errors are tagged with sentinel markers so callers can classify a failure
// without string matching: transient failures are retried or absorbed by the
// next cycle, configuration and hardware failures block daemon startup.
package services
