package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cardsort/internal/actuator"
	"cardsort/internal/capture"
	"cardsort/internal/cards"
	"cardsort/internal/history"
	"cardsort/internal/logging"
	"cardsort/internal/ocr"
	"cardsort/internal/pricing"
	"cardsort/internal/router"
	"cardsort/internal/services"
	"cardsort/internal/sortlog"
	"cardsort/internal/state"
)

// Recognizer resolves OCR text to a card identity.
type Recognizer interface {
	Identify(ctx context.Context, text string) cards.Recognition
}

// Pricer resolves a card to a USD price through the configured sources.
type Pricer interface {
	Resolve(ctx context.Context, query pricing.Query) pricing.Result
	SetSources(primary, fallback string) error
}

// Notifier receives session lifecycle events. All methods must be
// non-blocking or internally bounded.
type Notifier interface {
	SessionStarted(ctx context.Context, mode string)
	SessionStopped(ctx context.Context, totalSorted int)
	CycleError(ctx context.Context, message string)
	Milestone(ctx context.Context, totalSorted int)
}

// Options wires a Controller. Capture, OCR, Recognizer, Pricer, Mover and
// Store are required; History, CSV and Notifier are optional.
type Options struct {
	Capture    capture.Source
	OCR        ocr.Engine
	Recognizer Recognizer
	Pricer     Pricer
	Mover      actuator.Mover
	Store      *state.Store
	History    *history.Store
	CSV        *sortlog.Writer
	Notifier   Notifier
	Logger     *slog.Logger

	// Defaults seed the runtime state when no state file exists yet.
	Defaults state.Runtime

	ConfidenceFloor float64
	CycleDelay      time.Duration
	StopTimeout     time.Duration
	UpdateBuffer    int
	MilestoneEvery  int
}

// Controller is the orchestrator. One background goroutine runs the cycle
// loop; command methods are safe to call concurrently from the control
// surface.
type Controller struct {
	capture    capture.Source
	ocr        ocr.Engine
	recognizer Recognizer
	pricer     Pricer
	mover      actuator.Mover
	store      *state.Store
	history    *history.Store
	csv        *sortlog.Writer
	notifier   Notifier
	logger     *slog.Logger

	confidenceFloor float64
	cycleDelay      time.Duration
	stopTimeout     time.Duration
	milestoneEvery  int

	updates chan Update

	mu      sync.Mutex
	runtime *state.Runtime
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a controller, restoring persisted session state when present
// and verifying the state file is writable before any sorting starts.
func New(opts Options) (*Controller, error) {
	switch {
	case opts.Capture == nil:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "new", "capture source required", nil)
	case opts.OCR == nil:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "new", "ocr engine required", nil)
	case opts.Recognizer == nil:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "new", "recognizer required", nil)
	case opts.Pricer == nil:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "new", "pricer required", nil)
	case opts.Mover == nil:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "new", "mover required", nil)
	case opts.Store == nil:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "new", "state store required", nil)
	}

	cycleDelay := opts.CycleDelay
	if cycleDelay <= 0 {
		cycleDelay = 500 * time.Millisecond
	}
	stopTimeout := opts.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}
	buffer := opts.UpdateBuffer
	if buffer <= 0 {
		buffer = 64
	}
	milestoneEvery := opts.MilestoneEvery
	if milestoneEvery <= 0 {
		milestoneEvery = defaultMilestoneEvery
	}

	runtime, exists, err := opts.Store.Load()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "controller", "new", "load persisted state", err)
	}
	if !exists {
		defaults := opts.Defaults
		runtime = &defaults
	}
	logger := logging.NewComponentLogger(opts.Logger, "controller")

	runtime.Normalize()
	if !router.ValidMode(router.Mode(runtime.Mode)) {
		runtime.Mode = string(router.ModePrice)
	}
	// A hand-edited or stale state file can disable both halves of the
	// price/combined fallback pair, a state the toggle guard never
	// produces. Re-enable the combined bin so routing keeps a terminal
	// destination.
	if runtime.BinDisabled(router.BinPrice) && runtime.BinDisabled(router.BinCombined) {
		runtime.SetBinDisabled(router.BinCombined, false)
		logger.Warn("persisted state disabled both price_bin and combined_bin; re-enabled combined_bin",
			logging.String(logging.FieldErrorHint, "review disabled_bins in the state file"))
	}

	if err := opts.Pricer.SetSources(runtime.PriceSourcePrimary, runtime.PriceSourceFallback); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "controller", "new", "apply price sources", err)
	}

	// Refuse to start a session whose state cannot be persisted.
	if err := opts.Store.Save(runtime); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "controller", "new", "state file not writable", err)
	}

	return &Controller{
		capture:         opts.Capture,
		ocr:             opts.OCR,
		recognizer:      opts.Recognizer,
		pricer:          opts.Pricer,
		mover:           opts.Mover,
		store:           opts.Store,
		history:         opts.History,
		csv:             opts.CSV,
		notifier:        opts.Notifier,
		logger:          logger,
		confidenceFloor: opts.ConfidenceFloor,
		cycleDelay:      cycleDelay,
		stopTimeout:     stopTimeout,
		milestoneEvery:  milestoneEvery,
		updates:         make(chan Update, buffer),
		runtime:         runtime,
	}, nil
}

// Updates returns the cycle outcome channel. Slow consumers lose the
// oldest updates rather than stalling the loop.
func (c *Controller) Updates() <-chan Update { return c.updates }

// Running reports whether the sorting loop is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start launches the sorting loop. Starting an already running controller
// is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	stopCh, doneCh := c.stopCh, c.doneCh
	mode := c.runtime.Mode
	c.mu.Unlock()

	c.logger.Info("sorting started",
		logging.String(logging.FieldEventType, "session_started"),
		logging.String("mode", mode))
	if c.notifier != nil {
		c.notifier.SessionStarted(ctx, mode)
	}

	go c.loop(ctx, stopCh, doneCh)
	return nil
}

// Stop signals the loop and waits for the in-flight cycle to finish, up to
// the stop timeout. Stopping an idle controller is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	stopCh, doneCh := c.stopCh, c.doneCh
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	c.mu.Unlock()

	timer := time.NewTimer(c.stopTimeout)
	defer timer.Stop()
	select {
	case <-doneCh:
	case <-timer.C:
		return services.Wrap(services.ErrTransient, "controller", "stop", "timed out waiting for sorting loop to finish", nil)
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	wasRunning := c.running
	c.running = false
	total := c.runtime.TotalCount()
	c.mu.Unlock()
	if !wasRunning {
		return nil
	}

	c.logger.Info("sorting stopped",
		logging.String(logging.FieldEventType, "session_stopped"),
		logging.Int("total_sorted", total))
	if c.notifier != nil {
		c.notifier.SessionStopped(ctx, total)
	}
	return nil
}

// RunOnce executes a single cycle synchronously. Rejected while the loop
// is running because the capture device and actuator are owned by the
// loop.
func (c *Controller) RunOnce(ctx context.Context) (Update, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return Update{}, services.Wrap(services.ErrValidation, "controller", "run-once", "sorting loop is running", nil)
	}
	c.mu.Unlock()

	update := c.cycle(ctx)
	c.publish(update)
	return update, nil
}

// SetMode switches the routing mode and persists it.
func (c *Controller) SetMode(mode string) error {
	if !router.ValidMode(router.Mode(mode)) {
		return services.Wrap(services.ErrValidation, "controller", "set-mode",
			fmt.Sprintf("unknown mode %q", mode), nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.runtime.Mode = mode
	return c.persistLocked()
}

// SetThreshold updates the price threshold and persists it.
func (c *Controller) SetThreshold(thresholdUSD float64) error {
	if thresholdUSD < 0 {
		return services.Wrap(services.ErrValidation, "controller", "set-threshold", "threshold must not be negative", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.runtime.PriceThresholdUSD = thresholdUSD
	return c.persistLocked()
}

// SetSources reorders the price providers and persists the choice.
func (c *Controller) SetSources(primary, fallback string) error {
	if err := c.pricer.SetSources(primary, fallback); err != nil {
		return services.Wrap(services.ErrValidation, "controller", "set-sources", "apply price sources", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.runtime.PriceSourcePrimary = primary
	c.runtime.PriceSourceFallback = fallback
	return c.persistLocked()
}

// SetBinEnabled toggles a bin. Disabling the last member of the
// price/combined fallback pair is rejected; the router's redirection
// depends on one of the two staying available.
func (c *Controller) SetBinEnabled(bin string, enabled bool) error {
	if !router.KnownBin(bin) {
		return services.Wrap(services.ErrValidation, "controller", "set-bin",
			fmt.Sprintf("unknown bin %q", bin), nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !enabled {
		other := router.BinCombined
		if bin == router.BinCombined {
			other = router.BinPrice
		}
		if (bin == router.BinPrice || bin == router.BinCombined) && c.runtime.BinDisabled(other) {
			return services.Wrap(services.ErrValidation, "controller", "set-bin",
				"price_bin and combined_bin cannot both be disabled", nil)
		}
	}

	c.runtime.SetBinDisabled(bin, !enabled)
	return c.persistLocked()
}

// TestBin fires one drop on a bin's gate without a card. Rejected while
// the loop is running.
func (c *Controller) TestBin(ctx context.Context, bin string) error {
	if !router.KnownBin(bin) {
		return services.Wrap(services.ErrValidation, "controller", "test-bin",
			fmt.Sprintf("unknown bin %q", bin), nil)
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return services.Wrap(services.ErrValidation, "controller", "test-bin", "sorting loop is running", nil)
	}
	c.mu.Unlock()

	return c.mover.Drop(ctx, bin)
}

// Status returns a snapshot of the session.
func (c *Controller) Status() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := c.runtime.Clone()
	return Snapshot{
		Running:             c.running,
		Mode:                clone.Mode,
		PriceThresholdUSD:   clone.PriceThresholdUSD,
		PriceSourcePrimary:  clone.PriceSourcePrimary,
		PriceSourceFallback: clone.PriceSourceFallback,
		DisabledBins:        clone.DisabledBins,
		Counts:              clone.Counts,
		LastBin:             clone.LastBin,
		TotalSorted:         clone.TotalCount(),
	}
}

// Counts returns the per-bin totals for this session.
func (c *Controller) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runtime.Clone().Counts
}

// RecentHistory returns the newest cycle records from the history store.
func (c *Controller) RecentHistory(ctx context.Context, limit int) ([]history.Record, error) {
	if c.history == nil {
		return nil, nil
	}
	return c.history.Recent(ctx, limit)
}

// persistLocked saves the runtime state. Callers must hold c.mu; the save
// is a single atomic file write so the lock is never held for long.
func (c *Controller) persistLocked() error {
	if err := c.store.Save(c.runtime); err != nil {
		return services.Wrap(services.ErrTransient, "controller", "persist", "save state file", err)
	}
	return nil
}
