package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"cardsort/internal/controller"
	"cardsort/internal/daemon"
	"cardsort/internal/history"
	"cardsort/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Cardsort", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun cardsort stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func cycleFromUpdate(update controller.Update, mode string) CycleResult {
	return CycleResult{
		CycleID:         update.CycleID,
		SortedAt:        update.At.Format(time.RFC3339Nano),
		Name:            update.Card.Name,
		SetCode:         update.Card.SetCode,
		CollectorNumber: update.Card.CollectorNumber,
		Confidence:      update.Card.Confidence,
		PriceUSD:        update.PriceUSD,
		PriceSource:     update.PriceSource,
		Bin:             update.Bin,
		Reason:          update.Reason,
		Flags:           update.Flags,
		Mode:            mode,
		Error:           update.Err,
	}
}

func cycleFromRecord(record history.Record) CycleResult {
	return CycleResult{
		CycleID:         record.CycleID,
		SortedAt:        record.SortedAt.Format(time.RFC3339Nano),
		Name:            record.Name,
		SetCode:         record.SetCode,
		CollectorNumber: record.CollectorNumber,
		Confidence:      record.Confidence,
		PriceUSD:        record.PriceUSD,
		PriceSource:     record.PriceSource,
		Bin:             record.Bin,
		Reason:          record.Reason,
		Flags:           record.Flags,
		Mode:            record.Mode,
	}
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("sorting start requested")
	if err := s.daemon.StartSorting(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "sorting started"
	s.log().Info("sorting started via IPC",
		logging.String(logging.FieldEventType, "sorting_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("sorting stop requested")
	if err := s.daemon.StopSorting(s.ctx); err != nil {
		return err
	}
	resp.Stopped = true
	resp.TotalSorted = s.daemon.Controller().Status().TotalSorted
	s.log().Info("sorting stopped via IPC",
		logging.String(logging.FieldEventType, "sorting_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	session := status.Session
	resp.Running = session.Running
	resp.Mode = session.Mode
	resp.PriceThresholdUSD = session.PriceThresholdUSD
	resp.PriceSourcePrimary = session.PriceSourcePrimary
	resp.PriceSourceFallback = session.PriceSourceFallback
	resp.DisabledBins = session.DisabledBins
	resp.Counts = session.Counts
	resp.LastBin = session.LastBin
	resp.TotalSorted = session.TotalSorted
	resp.StateFilePath = status.StateFilePath
	resp.HistoryDBPath = status.HistoryDBPath
	resp.CSVDir = status.CSVDir
	resp.LockPath = status.LockFilePath
	resp.SocketPath = status.SocketPath
	resp.PID = status.PID
	if len(status.Dependencies) > 0 {
		resp.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
		for _, dep := range status.Dependencies {
			resp.Dependencies = append(resp.Dependencies, DependencyStatus{
				Name:        dep.Name,
				Command:     dep.Command,
				Description: dep.Description,
				Optional:    dep.Optional,
				Available:   dep.Available,
				Detail:      dep.Detail,
			})
		}
	}
	return nil
}

func (s *service) RunOnce(_ RunOnceRequest, resp *RunOnceResponse) error {
	s.log().Debug("single cycle requested")
	update, err := s.daemon.RunOnce(s.ctx)
	if err != nil {
		return err
	}
	resp.Cycle = cycleFromUpdate(update, s.daemon.Controller().Status().Mode)
	return nil
}

func (s *service) SetMode(req SetModeRequest, resp *SetModeResponse) error {
	if err := s.daemon.SetMode(req.Mode); err != nil {
		return err
	}
	resp.Mode = req.Mode
	s.log().Info("mode changed via IPC",
		logging.String(logging.FieldEventType, "mode_changed"),
		logging.String("mode", req.Mode))
	return nil
}

func (s *service) SetThreshold(req SetThresholdRequest, resp *SetThresholdResponse) error {
	if err := s.daemon.SetThreshold(req.ThresholdUSD); err != nil {
		return err
	}
	resp.ThresholdUSD = req.ThresholdUSD
	s.log().Info("price threshold changed via IPC",
		logging.String(logging.FieldEventType, "threshold_changed"),
		logging.Float64("threshold_usd", req.ThresholdUSD))
	return nil
}

func (s *service) SetSources(req SetSourcesRequest, resp *SetSourcesResponse) error {
	if err := s.daemon.SetSources(req.Primary, req.Fallback); err != nil {
		return err
	}
	resp.Primary = req.Primary
	resp.Fallback = req.Fallback
	s.log().Info("price sources changed via IPC",
		logging.String(logging.FieldEventType, "sources_changed"),
		logging.String("primary", req.Primary),
		logging.String("fallback", req.Fallback))
	return nil
}

func (s *service) SetBin(req SetBinRequest, resp *SetBinResponse) error {
	if err := s.daemon.SetBinEnabled(req.Bin, req.Enabled); err != nil {
		return err
	}
	resp.Bin = req.Bin
	resp.Enabled = req.Enabled
	s.log().Info("bin toggled via IPC",
		logging.String(logging.FieldEventType, "bin_toggled"),
		logging.String(logging.FieldBin, req.Bin),
		logging.Bool("enabled", req.Enabled))
	return nil
}

func (s *service) TestBin(req TestBinRequest, resp *TestBinResponse) error {
	s.log().Debug("bin test requested", logging.String(logging.FieldBin, req.Bin))
	if err := s.daemon.TestBin(s.ctx, req.Bin); err != nil {
		return err
	}
	resp.Triggered = true
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	records, err := s.daemon.History(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Cycles = make([]CycleResult, 0, len(records))
	for _, record := range records {
		resp.Cycles = append(resp.Cycles, cycleFromRecord(record))
	}
	return nil
}

func (s *service) HistoryClear(_ HistoryClearRequest, resp *HistoryClearResponse) error {
	if err := s.daemon.ClearHistory(s.ctx); err != nil {
		return err
	}
	resp.Cleared = true
	s.log().Info("history cleared via IPC",
		logging.String(logging.FieldEventType, "history_cleared"))
	return nil
}

func (s *service) Counts(_ CountsRequest, resp *CountsResponse) error {
	lifetime, err := s.daemon.LifetimeCounts(s.ctx)
	if err != nil {
		return err
	}
	resp.Session = s.daemon.Controller().Counts()
	resp.Lifetime = lifetime
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
