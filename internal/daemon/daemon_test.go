package daemon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cardsort/internal/cards"
	"cardsort/internal/daemon"
	"cardsort/internal/logging"
	"cardsort/internal/state"
	"cardsort/internal/testsupport"
)

func notFoundServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"object":"error","code":"not_found"}`, http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDaemonLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCardIndex(cards.Metadata{
		Name:          "Giant Growth",
		SetCode:       "lea",
		ColorIdentity: []string{"G"},
	}))
	cfg.Scryfall.BaseURL = notFoundServer(t).URL

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail while running")
	}

	if d.Sorting() {
		t.Fatal("sorting loop should not start with the daemon")
	}

	update, err := d.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if update.Err != "" {
		t.Fatalf("cycle failed: %s", update.Err)
	}
	if update.Bin == "" {
		t.Fatal("expected a routed bin")
	}

	status := d.Status(ctx)
	if status.Session.TotalSorted != 1 {
		t.Fatalf("expected 1 sorted card, got %d", status.Session.TotalSorted)
	}
	if status.PID <= 0 {
		t.Fatalf("expected PID, got %d", status.PID)
	}
	if !strings.HasSuffix(status.LockFilePath, "cardsortd.lock") {
		t.Fatalf("unexpected lock path: %s", status.LockFilePath)
	}
	if len(status.Dependencies) != 0 {
		t.Fatalf("mock mode should report no binary dependencies, got %d", len(status.Dependencies))
	}

	records, err := d.History(ctx, 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(records))
	}

	d.Stop()
	// Stop is idempotent.
	d.Stop()
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scryfall.BaseURL = notFoundServer(t).URL

	first, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { first.Close() })

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	second, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New (second): %v", err)
	}
	t.Cleanup(func() { second.Close() })

	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected second instance to fail acquiring the lock")
	}
}

func TestDaemonRestoresPersistedState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scryfall.BaseURL = notFoundServer(t).URL

	store := state.NewStore(cfg.Paths.StateFile)
	if err := store.Save(&state.Runtime{
		Mode:               "color",
		PriceThresholdUSD:  3.5,
		PriceSourcePrimary: "scryfall",
		DisabledBins:       []string{"red_bin"},
		Counts:             map[string]int{"red_bin": 7},
	}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	status := d.Status(context.Background())
	if status.Session.Mode != "color" {
		t.Fatalf("expected restored color mode, got %q", status.Session.Mode)
	}
	if status.Session.PriceThresholdUSD != 3.5 {
		t.Fatalf("expected restored threshold, got %v", status.Session.PriceThresholdUSD)
	}
	if status.Session.TotalSorted != 7 {
		t.Fatalf("expected restored counts, got %d", status.Session.TotalSorted)
	}
}

func TestDaemonTestNotification(t *testing.T) {
	var posts int
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		posts++
		w.WriteHeader(http.StatusOK)
	}))
	defer ntfy.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(ntfy.URL))
	cfg.Scryfall.BaseURL = notFoundServer(t).URL

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if !sent || posts != 1 {
		t.Fatalf("expected one delivered notification, sent=%v posts=%d (%s)", sent, posts, message)
	}
}

func TestDaemonNoTopicConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scryfall.BaseURL = notFoundServer(t).URL

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent || message == "" {
		t.Fatalf("expected unsent with explanation, got sent=%v message=%q", sent, message)
	}
}
