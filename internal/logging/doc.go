// Package logging wires log/slog for the sorter daemon and CLI.
//
// Two handlers are provided: a console handler that prints a compact
// timestamp/level/component line for operators, and a JSON handler for log
// files. Output fans out to stdout plus the configured log file. Components
// attach themselves with NewComponentLogger so console lines carry a stable
// prefix.
package logging
