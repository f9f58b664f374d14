package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "cardsort/0.1.0"

// Service is the notification surface the controller and CLI consume.
// Send failures are swallowed after logging upstream; notifications are
// best-effort and never fail a sort cycle.
type Service interface {
	SessionStarted(ctx context.Context, mode string)
	SessionStopped(ctx context.Context, totalSorted int)
	CycleError(ctx context.Context, message string)
	Milestone(ctx context.Context, totalSorted int)
	Test(ctx context.Context) error
}

// Options selects which events get pushed.
type Options struct {
	Topic          string
	RequestTimeout time.Duration
	Errors         bool
	Session        bool
}

// NewService builds an ntfy-backed service when a topic is configured and
// a noop one otherwise.
func NewService(opts Options) Service {
	topic := strings.TrimSpace(opts.Topic)
	if topic == "" {
		return noopService{}
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		errors:   opts.Errors,
		session:  opts.Session,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	errors   bool
	session  bool
}

func (n *ntfyService) SessionStarted(ctx context.Context, mode string) {
	if !n.session {
		return
	}
	_ = n.send(ctx, payload{
		title:   "Cardsort - Session Started",
		message: fmt.Sprintf("Sorting started in %s mode", mode),
		tags:    []string{"cardsort", "session", "started"},
	})
}

func (n *ntfyService) SessionStopped(ctx context.Context, totalSorted int) {
	if !n.session {
		return
	}
	_ = n.send(ctx, payload{
		title:   "Cardsort - Session Stopped",
		message: fmt.Sprintf("Sorting stopped: %d cards sorted", totalSorted),
		tags:    []string{"cardsort", "session", "stopped"},
	})
}

func (n *ntfyService) CycleError(ctx context.Context, message string) {
	if !n.errors {
		return
	}
	_ = n.send(ctx, payload{
		title:    "Cardsort - Cycle Error",
		message:  strings.TrimSpace(message),
		tags:     []string{"cardsort", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) Milestone(ctx context.Context, totalSorted int) {
	if !n.session {
		return
	}
	_ = n.send(ctx, payload{
		title:    "Cardsort - Progress",
		message:  fmt.Sprintf("%d cards sorted this session", totalSorted),
		tags:     []string{"cardsort", "milestone"},
		priority: "low",
	})
}

func (n *ntfyService) Test(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Cardsort - Test",
		message:  "Notification system test",
		tags:     []string{"cardsort", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) SessionStarted(context.Context, string) {}
func (noopService) SessionStopped(context.Context, int)    {}
func (noopService) CycleError(context.Context, string)     {}
func (noopService) Milestone(context.Context, int)         {}
func (noopService) Test(context.Context) error             { return nil }
