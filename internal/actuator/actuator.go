package actuator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spencerhhubert/go-firmata"

	"cardsort/internal/logging"
	"cardsort/internal/services"
)

// Firmata SysEx subcommands understood by the PCA9685 sketch.
const (
	sysExShieldCommand = 0x01
	subInitPCA9685     = 0x07
	subSetServoAngle   = 0x08
)

// Mover routes a card into a physical bin.
type Mover interface {
	Drop(ctx context.Context, bin string) error
	Close() error
}

// Options configures the servo bank.
type Options struct {
	SerialPort   string
	Baud         int
	BoardAddress int
	ChannelMap   map[string]int
	OpenAngle    int
	ClosedAngle  int
	Dwell        time.Duration
}

// ServoBank is the hardware Mover. One PCA9685 channel per bin; Drop opens
// the bin's gate, holds it for the dwell time, and closes it.
type ServoBank struct {
	client      *firmata.FirmataClient
	boardAddr   byte
	channels    map[string]byte
	openAngle   uint8
	closedAngle uint8
	dwell       time.Duration
	logger      *slog.Logger

	mu sync.Mutex
}

// NewServoBank connects to the controller and parks every gate closed.
func NewServoBank(opts Options, logger *slog.Logger) (*ServoBank, error) {
	if opts.SerialPort == "" {
		return nil, services.Wrap(services.ErrConfiguration, "actuator", "new", "serial port required", nil)
	}
	if len(opts.ChannelMap) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "actuator", "new", "channel map required", nil)
	}
	baud := opts.Baud
	if baud <= 0 {
		baud = 57600
	}
	dwell := opts.Dwell
	if dwell <= 0 {
		dwell = 400 * time.Millisecond
	}

	client, err := firmata.NewClient(opts.SerialPort, baud)
	if err != nil {
		return nil, services.Wrap(services.ErrHardware, "actuator", "new",
			fmt.Sprintf("connect to firmata controller on %s", opts.SerialPort), err)
	}

	channels := make(map[string]byte, len(opts.ChannelMap))
	for bin, channel := range opts.ChannelMap {
		channels[bin] = byte(channel)
	}

	bank := &ServoBank{
		client:      client,
		boardAddr:   byte(opts.BoardAddress),
		channels:    channels,
		openAngle:   uint8(opts.OpenAngle),
		closedAngle: uint8(opts.ClosedAngle),
		dwell:       dwell,
		logger:      logging.NewComponentLogger(logger, "actuator"),
	}

	bank.client.SysEx(sysExShieldCommand, subInitPCA9685, bank.boardAddr)
	for _, channel := range channels {
		bank.setAngle(channel, bank.closedAngle)
	}
	return bank, nil
}

// Drop opens the gate for bin, waits out the dwell, and closes it. The
// close always runs, even when the context is cancelled during the dwell,
// so a stopped session never leaves a gate hanging open.
func (b *ServoBank) Drop(ctx context.Context, bin string) error {
	channel, ok := b.channels[bin]
	if !ok {
		return services.Wrap(services.ErrValidation, "actuator", "drop",
			fmt.Sprintf("no servo channel mapped for bin %q", bin), nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.logger.Debug("opening gate",
		logging.String(logging.FieldBin, bin),
		logging.Int("channel", int(channel)))

	b.setAngle(channel, b.openAngle)
	select {
	case <-time.After(b.dwell):
	case <-ctx.Done():
	}
	b.setAngle(channel, b.closedAngle)

	return ctx.Err()
}

func (b *ServoBank) setAngle(channel byte, angle uint8) {
	split := uint8To7BitBytes(angle)
	b.client.SysEx(sysExShieldCommand, subSetServoAngle, b.boardAddr, channel, split[0], split[1])
}

// Close parks the gates and releases the serial port.
func (b *ServoBank) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, channel := range b.channels {
		b.setAngle(channel, b.closedAngle)
	}
	b.client.Close()
	return nil
}

// uint8To7BitBytes splits a byte into two 7-bit halves, the encoding
// Firmata SysEx payloads require.
func uint8To7BitBytes(v uint8) [2]byte {
	return [2]byte{v & 0x7F, v >> 7}
}

// NopMover satisfies Mover without hardware, logging each drop. Used in
// mock mode and by the preflight dry run.
type NopMover struct {
	logger *slog.Logger
}

// NewNopMover creates a logging no-op mover.
func NewNopMover(logger *slog.Logger) *NopMover {
	return &NopMover{logger: logging.NewComponentLogger(logger, "actuator")}
}

// Drop implements Mover.
func (m *NopMover) Drop(_ context.Context, bin string) error {
	m.logger.Info("mock drop",
		logging.String(logging.FieldBin, bin),
		logging.String(logging.FieldEventType, "mock_drop"))
	return nil
}

// Close implements Mover.
func (m *NopMover) Close() error { return nil }
