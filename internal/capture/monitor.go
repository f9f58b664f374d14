package capture

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"cardsort/internal/logging"
)

// Monitor listens for udev netlink events on the video4linux subsystem and
// reports the configured camera appearing or disappearing, so a mid-session
// unplug surfaces in the log instead of as a string of capture failures.
type Monitor struct {
	logger   *slog.Logger
	device   string
	onAttach func(device string)
	onDetach func(device string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewMonitor creates a camera monitor for device (e.g. /dev/video0).
// Returns nil when no device is configured; a nil Monitor is inert.
func NewMonitor(device string, logger *slog.Logger, onAttach, onDetach func(device string)) *Monitor {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	return &Monitor{
		logger:   logging.NewComponentLogger(logger, "camera-monitor"),
		device:   device,
		onAttach: onAttach,
		onDetach: onDetach,
	}
}

// Start begins listening for camera hotplug events. A netlink connection
// failure is non-fatal; capture errors still surface per cycle.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; camera hotplug detection unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon can open netlink sockets"),
			logging.String(logging.FieldImpact, "camera unplug will only surface as capture failures"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("camera monitor started",
		logging.String(logging.FieldEventType, "camera_monitor_started"),
		logging.String("device", m.device))
	return nil
}

// Stop shuts down the monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("camera monitor stopped",
		logging.String(logging.FieldEventType, "camera_monitor_stopped"))
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("camera monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "camera_monitor_error"))
		}
	}
}

// buildMatcher matches add/remove events on the video4linux subsystem.
func (m *Monitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	devname := uevent.Env["DEVNAME"]
	if devname == "" {
		return
	}
	if !strings.HasSuffix(devname, strings.TrimPrefix(m.device, "/dev/")) && devname != m.device {
		return
	}

	switch uevent.Action {
	case "add":
		m.logger.Info("camera attached",
			logging.String(logging.FieldEventType, "camera_attached"),
			logging.String("device", devname))
		if m.onAttach != nil {
			m.onAttach(devname)
		}
	case "remove":
		m.logger.Warn("camera detached",
			logging.String(logging.FieldEventType, "camera_detached"),
			logging.String("device", devname),
			logging.String(logging.FieldImpact, "capture will fail until the camera returns"))
		if m.onDetach != nil {
			m.onDetach(devname)
		}
	}
}
