// Package pricing resolves card identities to USD market prices.
//
// Providers wrap the Scryfall and TCGplayer APIs behind one interface; the
// Resolver orders them primary then fallback, caches every definitive
// answer (including "no price exists") under a TTL, and consults the
// fallback only when the primary definitively reports no price.
package pricing
