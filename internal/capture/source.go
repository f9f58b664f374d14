package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"cardsort/internal/services"
)

// Source produces the path of a freshly captured frame image.
type Source interface {
	Capture(ctx context.Context) (string, error)
}

// CommandSource runs an external grab command (fswebcam, ffmpeg, rpicam-still)
// once per cycle. The args may reference {device} and {output}; the frame is
// overwritten in place each cycle.
type CommandSource struct {
	command string
	args    []string
	device  string
	output  string
	timeout time.Duration
}

// NewCommandSource creates a command-backed capture source writing frames
// under dir.
func NewCommandSource(command string, args []string, device, dir string, timeout time.Duration) (*CommandSource, error) {
	if strings.TrimSpace(command) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "new", "capture command required", nil)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CommandSource{
		command: command,
		args:    args,
		device:  device,
		output:  filepath.Join(dir, "frame.png"),
		timeout: timeout,
	}, nil
}

// OutputPath returns where captured frames are written.
func (s *CommandSource) OutputPath() string { return s.output }

// Capture grabs one frame and returns its path. The previous frame is
// removed first so a silently failing grab cannot serve a stale image.
func (s *CommandSource) Capture(ctx context.Context) (string, error) {
	if err := os.MkdirAll(filepath.Dir(s.output), 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "capture", "capture", "create frame directory", err)
	}
	_ = os.Remove(s.output)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := make([]string, 0, len(s.args))
	for _, arg := range s.args {
		arg = strings.ReplaceAll(arg, "{device}", s.device)
		arg = strings.ReplaceAll(arg, "{output}", s.output)
		args = append(args, arg)
	}

	cmd := exec.CommandContext(ctx, s.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return "", services.Wrap(services.ErrTransient, "capture", "capture", "run capture command", err)
	}

	info, err := os.Stat(s.output)
	if err != nil || info.Size() == 0 {
		return "", services.Wrap(services.ErrTransient, "capture", "capture", "capture command produced no frame", err)
	}
	return s.output, nil
}

// MockSource satisfies Source without hardware. It returns an empty path;
// pair it with a mock text extractor that ignores the image.
type MockSource struct{}

// Capture implements Source.
func (MockSource) Capture(context.Context) (string, error) { return "", nil }
