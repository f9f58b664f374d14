package ipc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cardsort/internal/cards"
	"cardsort/internal/daemon"
	"cardsort/internal/ipc"
	"cardsort/internal/logging"
	"cardsort/internal/testsupport"
)

func TestIPCServerClient(t *testing.T) {
	// Price lookups 404 so every cycle is definitively unpriced without
	// leaving the test process.
	pricesDown := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"object":"error","code":"not_found"}`, http.StatusNotFound)
	}))
	defer pricesDown.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCardIndex(cards.Metadata{
		Name:            "Lightning Bolt",
		SetCode:         "lea",
		CollectorNumber: "161",
		Colors:          []string{"R"},
		ColorIdentity:   []string{"R"},
	}))
	cfg.Scryfall.BaseURL = pricesDown.URL
	logger := logging.NewNop()

	d, err := daemon.New(cfg, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.Paths.Socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(cfg.Paths.Socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Running {
		t.Fatal("sorting should be idle at startup")
	}
	if status.Mode != "price" {
		t.Fatalf("expected default price mode, got %q", status.Mode)
	}
	if status.PID <= 0 {
		t.Fatalf("expected a PID, got %d", status.PID)
	}
	if !strings.HasSuffix(status.HistoryDBPath, "history.db") {
		t.Fatalf("unexpected history db path: %s", status.HistoryDBPath)
	}

	once, err := client.RunOnce()
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if once.Cycle.Error != "" {
		t.Fatalf("cycle reported error: %s", once.Cycle.Error)
	}
	if once.Cycle.Name != "Lightning Bolt" {
		t.Fatalf("expected mock rotation to recognize Lightning Bolt, got %q", once.Cycle.Name)
	}
	if once.Cycle.Bin != "combined_bin" || once.Cycle.Reason != "unpriced" {
		t.Fatalf("expected unpriced card in combined_bin, got %s/%s", once.Cycle.Bin, once.Cycle.Reason)
	}

	if _, err := client.SetMode("color"); err != nil {
		t.Fatalf("SetMode failed: %v", err)
	}
	if _, err := client.SetMode("alphabetical"); err == nil {
		t.Fatal("expected error for unknown mode")
	}

	if _, err := client.SetThreshold(5); err != nil {
		t.Fatalf("SetThreshold failed: %v", err)
	}
	if _, err := client.SetThreshold(-1); err == nil {
		t.Fatal("expected error for negative threshold")
	}

	if _, err := client.SetSources("scryfall", ""); err != nil {
		t.Fatalf("SetSources failed: %v", err)
	}
	// TCGplayer is not registered without credentials.
	if _, err := client.SetSources("tcgplayer", ""); err == nil {
		t.Fatal("expected error for unregistered price source")
	}

	if _, err := client.SetBin("red_bin", false); err != nil {
		t.Fatalf("SetBin failed: %v", err)
	}
	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if len(status.DisabledBins) != 1 || status.DisabledBins[0] != "red_bin" {
		t.Fatalf("expected red_bin disabled, got %v", status.DisabledBins)
	}
	if status.Mode != "color" || status.PriceThresholdUSD != 5 {
		t.Fatalf("settings not applied: %+v", status)
	}
	if _, err := client.SetBin("red_bin", true); err != nil {
		t.Fatalf("re-enable bin failed: %v", err)
	}

	testBin, err := client.TestBin("green_bin")
	if err != nil {
		t.Fatalf("TestBin failed: %v", err)
	}
	if !testBin.Triggered {
		t.Fatal("expected TestBin to report triggered")
	}
	if _, err := client.TestBin("trash_bin"); err == nil {
		t.Fatal("expected error for unknown bin")
	}

	hist, err := client.History(10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(hist.Cycles) != 1 || hist.Cycles[0].Name != "Lightning Bolt" {
		t.Fatalf("unexpected history: %#v", hist.Cycles)
	}

	counts, err := client.Counts()
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.Session["combined_bin"] != 1 || counts.Lifetime["combined_bin"] != 1 {
		t.Fatalf("unexpected counts: %#v", counts)
	}

	cleared, err := client.HistoryClear()
	if err != nil {
		t.Fatalf("HistoryClear failed: %v", err)
	}
	if !cleared.Cleared {
		t.Fatal("expected history to be cleared")
	}
	hist, err = client.History(10)
	if err != nil {
		t.Fatalf("History after clear failed: %v", err)
	}
	if len(hist.Cycles) != 0 {
		t.Fatalf("expected empty history, got %d records", len(hist.Cycles))
	}

	notify, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if notify.Sent || notify.Message == "" {
		t.Fatalf("expected unsent notification with message, got %#v", notify)
	}

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected sorting loop to be running")
	}

	// RunOnce is rejected while the loop owns the hardware.
	if _, err := client.RunOnce(); err == nil {
		t.Fatal("expected RunOnce to be rejected while sorting")
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected sorting loop to be stopped")
	}
}

func TestDialFailsWhenDaemonOffline(t *testing.T) {
	_, err := ipc.Dial(filepath.Join(t.TempDir(), "missing.sock"))
	if err == nil {
		t.Fatal("expected dial error for missing socket")
	}
}
