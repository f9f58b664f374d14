package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	price := 4.2
	id, err := store.Append(ctx, Record{
		CycleID:         "cycle-1",
		SortedAt:        time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Name:            "Dark Ritual",
		SetCode:         "lea",
		CollectorNumber: "98",
		Confidence:      0.9,
		PriceUSD:        &price,
		PriceSource:     "scryfall",
		Bin:             "price_bin",
		Reason:          "price_above_threshold",
		Flags:           []string{"price_above_threshold"},
		Mode:            "price",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id == 0 {
		t.Error("expected nonzero row id")
	}

	if _, err := store.Append(ctx, Record{CycleID: "cycle-2", Bin: "combined_bin", Reason: "unrecognized", Mode: "price"}); err != nil {
		t.Fatalf("Append second: %v", err)
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].CycleID != "cycle-2" {
		t.Errorf("newest first: got %q", records[0].CycleID)
	}

	first := records[1]
	if first.Name != "Dark Ritual" || first.Bin != "price_bin" {
		t.Errorf("unexpected record: %+v", first)
	}
	if first.PriceUSD == nil || *first.PriceUSD != 4.2 {
		t.Errorf("PriceUSD = %v, want 4.2", first.PriceUSD)
	}
	if len(first.Flags) != 1 || first.Flags[0] != "price_above_threshold" {
		t.Errorf("Flags = %v", first.Flags)
	}
	if !first.SortedAt.Equal(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("SortedAt = %v", first.SortedAt)
	}

	second := records[0]
	if second.PriceUSD != nil {
		t.Errorf("unpriced record should scan nil, got %v", *second.PriceUSD)
	}
	if second.Flags != nil {
		t.Errorf("empty flags should scan nil, got %v", second.Flags)
	}
}

func TestCountsByBin(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, bin := range []string{"red_bin", "red_bin", "combined_bin"} {
		if _, err := store.Append(ctx, Record{CycleID: "c", Bin: bin, Reason: "color_mode", Mode: "color"}); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := store.CountsByBin(ctx)
	if err != nil {
		t.Fatalf("CountsByBin: %v", err)
	}
	if counts["red_bin"] != 2 || counts["combined_bin"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Append(ctx, Record{CycleID: "c", Bin: "red_bin", Reason: "color_mode", Mode: "color"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records after Clear, want 0", len(records))
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Append(context.Background(), Record{CycleID: "c", Bin: "red_bin", Reason: "color_mode", Mode: "color"}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	records, err := reopened.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records after reopen, want 1", len(records))
	}
}
