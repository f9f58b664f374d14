package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cardsort/internal/cards"
	"cardsort/internal/config"
	"cardsort/internal/daemon"
	"cardsort/internal/ipc"
	"cardsort/internal/logging"
	"cardsort/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	pricesDown := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"object":"error","code":"not_found"}`, http.StatusNotFound)
	}))
	t.Cleanup(pricesDown.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithCardIndex(cards.Metadata{
		Name:            "Lightning Bolt",
		SetCode:         "lea",
		CollectorNumber: "161",
		Colors:          []string{"R"},
		ColorIdentity:   []string{"R"},
	}))
	cfg.Scryfall.BaseURL = pricesDown.URL

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	logger := logging.NewNop()
	d, err := daemon.New(cfg, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.Paths.Socket, d, logger)
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	time.Sleep(50 * time.Millisecond)

	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		socketPath: cfg.Paths.Socket,
		configPath: configPath,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func TestCLISessionCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "idle")
	requireContains(t, out, "price")

	out, _, err = runCLI(t, []string{"once"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("once: %v", err)
	}
	requireContains(t, out, "Lightning Bolt")
	requireContains(t, out, "combined_bin")

	out, _, err = runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Sorting started")

	out, _, err = runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Sorting stopped")
}

func TestCLIPolicyCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"mode", "color"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("mode: %v", err)
	}
	requireContains(t, out, "color")

	if _, _, err := runCLI(t, []string{"mode", "alphabetical"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error for unknown mode")
	}

	out, _, err = runCLI(t, []string{"threshold", "2.50"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("threshold: %v", err)
	}
	requireContains(t, out, "$2.50")

	if _, _, err := runCLI(t, []string{"threshold", "not-a-number"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error for malformed threshold")
	}

	out, _, err = runCLI(t, []string{"bin", "disable", "red_bin"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("bin disable: %v", err)
	}
	requireContains(t, out, "red_bin disabled")

	out, _, err = runCLI(t, []string{"bin", "enable", "red_bin"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("bin enable: %v", err)
	}
	requireContains(t, out, "red_bin enabled")

	if _, _, err := runCLI(t, []string{"bin", "toggle", "red_bin"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error for unknown bin action")
	}

	out, _, err = runCLI(t, []string{"test-bin", "green_bin"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-bin: %v", err)
	}
	requireContains(t, out, "green_bin")
}

func TestCLIHistoryAndCounts(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No cards sorted yet")

	if _, _, err := runCLI(t, []string{"once"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("once: %v", err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Lightning Bolt")
	requireContains(t, out, "combined_bin")

	out, _, err = runCLI(t, []string{"counts"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	requireContains(t, out, "combined_bin")

	out, _, err = runCLI(t, []string{"history", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Sort history cleared")
}

func TestCLITestNotify(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestCLIDialErrorMentionsDaemon(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.sock")
	_, _, err := runCLI(t, []string{"status"}, missing, "")
	if err == nil {
		t.Fatal("expected dial error for missing socket")
	}
	if !strings.Contains(err.Error(), "cardsortd") {
		t.Fatalf("expected hint to start cardsortd, got: %v", err)
	}
}
