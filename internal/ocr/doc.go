// Package ocr extracts the title line from a captured card frame by
// shelling out to tesseract, and cleans the raw output into something the
// identifier can match against.
package ocr
