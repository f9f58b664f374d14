// Package notifications delivers session events to the operator's phone.
//
// The default implementation publishes to ntfy using the topic configured
// in the notifications section; without a topic a noop implementation is
// returned so callers never need nil checks.
package notifications
