package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"cardsort/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCardIndex(t *testing.T) {
	missing := CheckCardIndex(filepath.Join(t.TempDir(), "index.json"))
	if !missing.Passed {
		t.Fatalf("missing index should pass with a note, got: %s", missing.Detail)
	}

	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	present := CheckCardIndex(path)
	if !present.Passed {
		t.Fatalf("expected pass for present index, got: %s", present.Detail)
	}

	dir := CheckCardIndex(t.TempDir())
	if dir.Passed {
		t.Fatal("expected failure when index path is a directory")
	}
}

func TestCheckSerialPort(t *testing.T) {
	result := CheckSerialPort(filepath.Join(t.TempDir(), "ttyUSB9"))
	if result.Passed {
		t.Fatal("expected failure for missing serial device")
	}

	// A regular file is not a character device.
	f := filepath.Join(t.TempDir(), "not-a-tty")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result = CheckSerialPort(f)
	if result.Passed {
		t.Fatal("expected failure for non-device path")
	}

	if CheckSerialPort("").Passed {
		t.Fatal("expected failure for unconfigured port")
	}
}

func TestCheckScryfall_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckScryfall(context.Background(), srv.URL)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckScryfall_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	result := CheckScryfall(context.Background(), srv.URL)
	if result.Passed {
		t.Fatal("expected failure for 500 response")
	}
}

func TestCheckScryfall_MissingURL(t *testing.T) {
	if CheckScryfall(context.Background(), "").Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MockMode(t *testing.T) {
	cfg := config.Default()
	cfg.Sorting.MockMode = true
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.CSVDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.CardIndex = filepath.Join(t.TempDir(), "index.json")

	results := RunAll(context.Background(), &cfg)
	// Directory checks plus the card index note; no hardware checks.
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
		if r.Name == "Servo controller" || r.Name == "Camera device" || r.Name == "Scryfall API" {
			t.Errorf("hardware check %q should be skipped in mock mode", r.Name)
		}
	}
}

func TestRunAll_HardwareChecksIncluded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Sorting.MockMode = false
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.CSVDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.CardIndex = filepath.Join(t.TempDir(), "index.json")
	cfg.Scryfall.BaseURL = srv.URL
	cfg.Capture.Device = filepath.Join(t.TempDir(), "video0")
	cfg.Actuator.SerialPort = filepath.Join(t.TempDir(), "ttyUSB0")

	results := RunAll(context.Background(), &cfg)
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if _, ok := byName["Servo controller"]; !ok {
		t.Fatal("expected servo controller check")
	}
	if byName["Servo controller"].Passed {
		t.Error("expected servo check to fail for missing device")
	}
	if !byName["Scryfall API"].Passed {
		t.Errorf("scryfall check failed: %s", byName["Scryfall API"].Detail)
	}
}

func TestCheckSystemDepsMockMode(t *testing.T) {
	cfg := config.Default()
	cfg.Sorting.MockMode = true
	if got := CheckSystemDeps(context.Background(), &cfg); got != nil {
		t.Fatalf("expected no dependency checks in mock mode, got %d", len(got))
	}
}
