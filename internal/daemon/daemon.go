package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"cardsort/internal/config"
	"cardsort/internal/controller"
	"cardsort/internal/deps"
	"cardsort/internal/history"
	"cardsort/internal/logging"
	"cardsort/internal/preflight"
)

// Daemon coordinates the sorting controller and enforces single-instance
// execution. The process-level Start acquires the lock and begins hardware
// monitoring; the sorting loop itself is started and stopped on demand
// through the control surface.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	comps  *components

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	PID           int
	Session       controller.Snapshot
	StateFilePath string
	HistoryDBPath string
	CSVDir        string
	LockFilePath  string
	SocketPath    string
	Dependencies  []deps.Status
}

// New wires the full pipeline from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	comps, err := buildComponents(cfg, logger)
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "cardsortd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		comps:    comps,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins camera monitoring. It does not
// start the sorting loop; that waits for an explicit StartSorting.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cardsort daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.comps.monitor != nil {
		if err := d.comps.monitor.Start(d.ctx); err != nil {
			d.logger.Warn("camera monitor failed to start", logging.Error(err))
		}
	}

	d.running.Store(true)
	d.logger.Info("cardsort daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts sorting, stops background monitoring, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if err := d.comps.controller.Stop(context.Background()); err != nil {
		d.logger.Warn("failed to stop sorting loop cleanly", logging.Error(err))
	}
	d.comps.monitor.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("cardsort daemon stopped")
}

// Close releases all resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if err := d.comps.mover.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close actuator: %w", err))
	}
	if err := d.comps.csv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close csv log: %w", err))
	}
	if err := d.comps.history.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close history store: %w", err))
	}
	return errors.Join(errs...)
}

// Controller exposes the sorting controller for update streaming.
func (d *Daemon) Controller() *controller.Controller {
	return d.comps.controller
}

// StartSorting launches the sorting loop.
func (d *Daemon) StartSorting(ctx context.Context) error {
	return d.comps.controller.Start(ctx)
}

// StopSorting stops the sorting loop, waiting for the in-flight cycle.
func (d *Daemon) StopSorting(ctx context.Context) error {
	return d.comps.controller.Stop(ctx)
}

// Sorting reports whether the sorting loop is active.
func (d *Daemon) Sorting() bool {
	return d.comps.controller.Running()
}

// RunOnce executes a single sort cycle synchronously.
func (d *Daemon) RunOnce(ctx context.Context) (controller.Update, error) {
	return d.comps.controller.RunOnce(ctx)
}

// SetMode switches the routing mode.
func (d *Daemon) SetMode(mode string) error {
	return d.comps.controller.SetMode(mode)
}

// SetThreshold updates the price threshold.
func (d *Daemon) SetThreshold(thresholdUSD float64) error {
	return d.comps.controller.SetThreshold(thresholdUSD)
}

// SetSources reorders the price providers.
func (d *Daemon) SetSources(primary, fallback string) error {
	return d.comps.controller.SetSources(primary, fallback)
}

// SetBinEnabled enables or disables a bin.
func (d *Daemon) SetBinEnabled(bin string, enabled bool) error {
	return d.comps.controller.SetBinEnabled(bin, enabled)
}

// TestBin cycles a bin's gate without a card.
func (d *Daemon) TestBin(ctx context.Context, bin string) error {
	return d.comps.controller.TestBin(ctx, bin)
}

// History returns the newest sort records.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Record, error) {
	return d.comps.history.Recent(ctx, limit)
}

// ClearHistory removes all sort records.
func (d *Daemon) ClearHistory(ctx context.Context) error {
	return d.comps.history.Clear(ctx)
}

// LifetimeCounts returns per-bin totals across all sessions.
func (d *Daemon) LifetimeCounts(ctx context.Context) (map[string]int, error) {
	return d.comps.history.CountsByBin(ctx)
}

// TestNotification sends a test push through the configured topic.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.comps.notifier.Test(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return filepath.Join(d.cfg.Paths.LogDir, "cardsortd.log")
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		PID:           os.Getpid(),
		Session:       d.comps.controller.Status(),
		StateFilePath: d.cfg.Paths.StateFile,
		HistoryDBPath: d.comps.history.Path(),
		CSVDir:        d.cfg.Paths.CSVDir,
		LockFilePath:  d.lockPath,
		SocketPath:    d.cfg.Paths.Socket,
		Dependencies:  preflight.CheckSystemDeps(ctx, d.cfg),
	}
}
