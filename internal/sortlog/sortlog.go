// Package sortlog appends one CSV row per sorted card, rotating files by
// UTC date so each session day is a self-contained export.
package sortlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

var header = []string{"timestamp", "name", "set_code", "collector_number", "price_usd", "price_source", "bin", "flags"}

// Entry is one sorted card. A nil PriceUSD renders as an empty cell.
type Entry struct {
	Timestamp       time.Time
	Name            string
	SetCode         string
	CollectorNumber string
	PriceUSD        *float64
	PriceSource     string
	Bin             string
	Flags           []string
}

// Writer appends entries to cards_YYYY-MM-DD.csv under its directory. The
// header is written once when a day's file is first created; reopening an
// existing file appends without repeating it.
type Writer struct {
	dir string

	mu      sync.Mutex
	file    *os.File
	csv     *csv.Writer
	fileDay string
}

// NewWriter creates a writer rooted at dir. Files are opened lazily on the
// first append.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// FileName returns the CSV file name for the given moment.
func FileName(at time.Time) string {
	return "cards_" + at.UTC().Format("2006-01-02") + ".csv"
}

// Append writes one row, rotating to a new file when the entry's UTC date
// differs from the open file's. Rows are flushed immediately so the log
// survives a crash mid-session.
func (w *Writer) Append(entry Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	at := entry.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	day := at.UTC().Format("2006-01-02")
	if err := w.ensureFile(day); err != nil {
		return err
	}

	price := ""
	if entry.PriceUSD != nil {
		price = strconv.FormatFloat(*entry.PriceUSD, 'f', 2, 64)
	}
	row := []string{
		at.UTC().Format(time.RFC3339),
		entry.Name,
		entry.SetCode,
		entry.CollectorNumber,
		price,
		entry.PriceSource,
		entry.Bin,
		strings.Join(entry.Flags, ";"),
	}
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func (w *Writer) ensureFile(day string) error {
	if w.file != nil && w.fileDay == day {
		return nil
	}
	if w.file != nil {
		w.csv.Flush()
		w.file.Close()
		w.file = nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create csv directory: %w", err)
	}
	path := filepath.Join(w.dir, "cards_"+day+".csv")

	info, statErr := os.Stat(path)
	needHeader := statErr != nil || info.Size() == 0

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open csv log: %w", err)
	}
	w.file = file
	w.csv = csv.NewWriter(file)
	w.fileDay = day

	if needHeader {
		if err := w.csv.Write(header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		w.csv.Flush()
		if err := w.csv.Error(); err != nil {
			return fmt.Errorf("flush csv header: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the open file, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	w.csv.Flush()
	err := w.file.Close()
	w.file = nil
	return err
}
