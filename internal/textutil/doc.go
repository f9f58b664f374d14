// Package textutil provides the text normalization and similarity helpers
// used to match noisy OCR output against card names.
//
// Similarity is a normalized edit-distance ratio in [0,1]; Normalize folds
// case and collapses whitespace so comparisons ignore OCR spacing artifacts.
package textutil
