// Package daemon owns the long-running sorter process: it wires the
// capture, recognition, pricing, routing and actuation components from
// configuration, enforces single-instance execution with a lock file, and
// exposes the control operations the IPC layer forwards to the CLI.
package daemon
