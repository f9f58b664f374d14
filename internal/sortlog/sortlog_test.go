package sortlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestAppendWritesHeaderAndRow(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir)
	defer writer.Close()

	when := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	price := 3.5
	err := writer.Append(Entry{
		Timestamp:       when,
		Name:            "Lightning Bolt",
		SetCode:         "lea",
		CollectorNumber: "161",
		PriceUSD:        &price,
		PriceSource:     "scryfall",
		Bin:             "price_bin",
		Flags:           []string{"price_above_threshold"},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "cards_2026-03-14.csv"))
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if strings.Join(rows[0], ",") != "timestamp,name,set_code,collector_number,price_usd,price_source,bin,flags" {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{"2026-03-14T15:09:26Z", "Lightning Bolt", "lea", "161", "3.50", "scryfall", "price_bin", "price_above_threshold"}
	for i, cell := range want {
		if rows[1][i] != cell {
			t.Errorf("row[%d] = %q, want %q", i, rows[1][i], cell)
		}
	}
}

func TestAppendNilPriceAndJoinedFlags(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir)
	defer writer.Close()

	when := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if err := writer.Append(Entry{
		Timestamp: when,
		Bin:       "combined_bin",
		Flags:     []string{"low_confidence", "price_bin_disabled"},
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "cards_2026-03-14.csv"))
	row := rows[1]
	if row[4] != "" {
		t.Errorf("price cell = %q, want empty for nil price", row[4])
	}
	if row[7] != "low_confidence;price_bin_disabled" {
		t.Errorf("flags cell = %q", row[7])
	}
}

func TestAppendRotatesByUTCDate(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir)
	defer writer.Close()

	first := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	second := first.Add(2 * time.Minute)

	if err := writer.Append(Entry{Timestamp: first, Bin: "red_bin"}); err != nil {
		t.Fatal(err)
	}
	if err := writer.Append(Entry{Timestamp: second, Bin: "red_bin"}); err != nil {
		t.Fatal(err)
	}

	dayOne := readCSV(t, filepath.Join(dir, "cards_2026-03-14.csv"))
	dayTwo := readCSV(t, filepath.Join(dir, "cards_2026-03-15.csv"))
	if len(dayOne) != 2 || len(dayTwo) != 2 {
		t.Errorf("rows per file = %d/%d, want 2/2", len(dayOne), len(dayTwo))
	}
}

func TestAppendReopenDoesNotRepeatHeader(t *testing.T) {
	dir := t.TempDir()
	when := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	writer := NewWriter(dir)
	if err := writer.Append(Entry{Timestamp: when, Bin: "red_bin"}); err != nil {
		t.Fatal(err)
	}
	writer.Close()

	reopened := NewWriter(dir)
	defer reopened.Close()
	if err := reopened.Append(Entry{Timestamp: when.Add(time.Hour), Bin: "green_bin"}); err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, filepath.Join(dir, "cards_2026-03-14.csv"))
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Errorf("first row should be the header, got %v", rows[0])
	}
	if rows[1][0] == "timestamp" || rows[2][0] == "timestamp" {
		t.Error("header repeated on reopen")
	}
}

func TestFileName(t *testing.T) {
	// 23:30 East-of-UTC local time is already the next UTC day.
	loc := time.FixedZone("ahead", -2*60*60)
	at := time.Date(2026, 3, 14, 23, 30, 0, 0, loc)
	if got := FileName(at); got != "cards_2026-03-15.csv" {
		t.Errorf("FileName = %q, want cards_2026-03-15.csv", got)
	}
}
