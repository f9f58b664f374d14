// Package controller owns the sorting session: a single background loop
// that captures a frame, identifies the card, prices it, routes it to a
// bin, fires the actuator, and records the outcome. Command handlers and
// the loop share one mutex over the runtime state, and state is persisted
// after every mutation. Cycle outcomes stream to a bounded update channel;
// a failed cycle is reported there and never halts the loop.
package controller
