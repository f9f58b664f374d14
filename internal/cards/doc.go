// Package cards defines card identity types and the local name index the
// identifier matches OCR output against before reaching for remote lookups.
package cards
