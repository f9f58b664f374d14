// Package identify resolves raw OCR text to a card identity.
//
// Matching is two-tier to bound remote request volume: an exact then fuzzy
// pass over the local card index runs first, and only when neither clears
// the similarity cutoff does the identifier fall back to a remote
// exact-name lookup. Every failure degrades the confidence tier instead of
// surfacing an error; a cycle always receives a Recognition.
package identify
