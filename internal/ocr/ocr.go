package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"os/exec"

	"cardsort/internal/services"
)

// Engine extracts card title text from a frame image. An empty string with
// a nil error means the engine ran but found no legible text.
type Engine interface {
	Extract(ctx context.Context, imagePath string) (string, error)
}

// TesseractEngine runs the tesseract binary against the frame.
type TesseractEngine struct {
	binary   string
	language string
	psm      int
	timeout  time.Duration
}

// NewTesseractEngine creates an engine. psm 7 (single text line) suits the
// cropped title band most capture setups produce.
func NewTesseractEngine(binary, language string, psm int, timeout time.Duration) (*TesseractEngine, error) {
	if strings.TrimSpace(binary) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ocr", "new", "tesseract binary required", nil)
	}
	if language == "" {
		language = "eng"
	}
	if psm <= 0 {
		psm = 7
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TesseractEngine{binary: binary, language: language, psm: psm, timeout: timeout}, nil
}

// Extract runs tesseract and returns the cleaned first line of output.
func (e *TesseractEngine) Extract(ctx context.Context, imagePath string) (string, error) {
	if strings.TrimSpace(imagePath) == "" {
		return "", services.Wrap(services.ErrValidation, "ocr", "extract", "image path required", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary,
		imagePath,
		"stdout",
		"-l", e.language,
		"--psm", strconv.Itoa(e.psm),
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return "", services.Wrap(services.ErrTransient, "ocr", "extract", "run tesseract", err)
	}
	return CleanText(stdout.String()), nil
}

// CleanText reduces raw OCR output to a plausible title: the first
// non-empty line, stripped of runes that never appear in card names, with
// whitespace collapsed.
func CleanText(raw string) string {
	var line string
	for _, candidate := range strings.Split(raw, "\n") {
		if strings.TrimSpace(candidate) != "" {
			line = candidate
			break
		}
	}
	if line == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range line {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteRune(' ')
		case r == '\'' || r == ',' || r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// MockEngine cycles through a fixed set of card names so a full pipeline
// dry run needs neither a camera nor tesseract.
type MockEngine struct {
	mu    sync.Mutex
	names []string
	next  int
}

// NewMockEngine creates a mock engine. With no names it yields a small
// built-in rotation that exercises every routing path.
func NewMockEngine(names ...string) *MockEngine {
	if len(names) == 0 {
		names = []string{
			"Lightning Bolt",
			"Counterspell",
			"Giant Growth",
			"Dark Ritual",
			"Sol Ring",
			"",
		}
	}
	return &MockEngine{names: names}
}

// Extract implements Engine, ignoring the image path.
func (e *MockEngine) Extract(context.Context, string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	name := e.names[e.next%len(e.names)]
	e.next++
	return name, nil
}
