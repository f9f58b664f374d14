// Package scryfall provides a minimal client for the Scryfall card API,
// covering the exact-name and set/collector-number lookups the identifier
// and pricer rely on.
package scryfall
