// Package logs provides bounded-memory log file tailing for the CLI.
//
// Tail supports a negative offset for "last N lines" reads and an optional
// wait so follow mode can block briefly for new output. Callers supply
// context deadlines so polling shuts down cleanly when the CLI exits.
package logs
