package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cardsort/internal/actuator"
	"cardsort/internal/capture"
	"cardsort/internal/cards"
	"cardsort/internal/config"
	"cardsort/internal/controller"
	"cardsort/internal/history"
	"cardsort/internal/identify"
	"cardsort/internal/logging"
	"cardsort/internal/notifications"
	"cardsort/internal/ocr"
	"cardsort/internal/pricing"
	"cardsort/internal/scryfall"
	"cardsort/internal/sortlog"
	"cardsort/internal/state"
)

// components holds everything the daemon wires from configuration. The
// controller owns the sorting pipeline; the rest are resources the daemon
// has to close on shutdown.
type components struct {
	controller *controller.Controller
	history    *history.Store
	csv        *sortlog.Writer
	mover      actuator.Mover
	notifier   notifications.Service
	monitor    *capture.Monitor
}

// buildComponents constructs the full pipeline from configuration. Mock
// mode swaps the camera, the OCR binary and the servo hardware for inert
// stand-ins and skips remote card lookups, so the pipeline runs end to end
// on a development machine.
func buildComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	index, err := loadCardIndex(cfg.Paths.CardIndex, logger)
	if err != nil {
		return nil, err
	}

	var remote identify.RemoteLookup
	scryfallClient, err := scryfall.New(cfg.Scryfall.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("scryfall client: %w", err)
	}
	if !cfg.Sorting.MockMode {
		remote = scryfallClient
	}

	recognizer := identify.NewIdentifier(index, remote, identify.Policy{
		ExactMatchConfidence:  cfg.Recognition.ExactMatchConfidence,
		RemoteMatchConfidence: cfg.Recognition.RemoteMatchConfidence,
		OCROnlyConfidence:     cfg.Recognition.OCROnlyConfidence,
		SimilarityCutoff:      cfg.Recognition.SimilarityCutoff,
	}, logger)

	pricer, fallback, err := buildPricer(cfg, scryfallClient, logger)
	if err != nil {
		return nil, err
	}

	source, engine, err := buildCaptureAndOCR(cfg)
	if err != nil {
		return nil, err
	}

	mover, err := buildMover(cfg, logger)
	if err != nil {
		return nil, err
	}

	historyStore, err := history.Open(filepath.Join(cfg.Paths.DataDir, "history.db"))
	if err != nil {
		mover.Close()
		return nil, fmt.Errorf("open history store: %w", err)
	}

	csv := sortlog.NewWriter(cfg.Paths.CSVDir)
	notifier := notifications.NewService(notifications.Options{
		Topic:          cfg.Notifications.NtfyTopic,
		RequestTimeout: time.Duration(cfg.Notifications.RequestTimeout) * time.Second,
		Errors:         cfg.Notifications.Errors,
		Session:        cfg.Notifications.Session,
	})

	ctrl, err := controller.New(controller.Options{
		Capture:    source,
		OCR:        engine,
		Recognizer: recognizer,
		Pricer:     pricer,
		Mover:      mover,
		Store:      state.NewStore(cfg.Paths.StateFile),
		History:    historyStore,
		CSV:        csv,
		Notifier:   notifier,
		Logger:     logger,
		Defaults: state.Runtime{
			Mode:                cfg.Sorting.Mode,
			PriceThresholdUSD:   cfg.Sorting.PriceThresholdUSD,
			PriceSourcePrimary:  cfg.Pricing.Primary,
			PriceSourceFallback: fallback,
		},
		ConfidenceFloor: cfg.Recognition.ConfidenceFloor,
		CycleDelay:      time.Duration(cfg.Workflow.CycleDelayMillis) * time.Millisecond,
		StopTimeout:     time.Duration(cfg.Workflow.StopTimeoutSeconds) * time.Second,
		MilestoneEvery:  cfg.Notifications.MilestoneEvery,
	})
	if err != nil {
		mover.Close()
		historyStore.Close()
		csv.Close()
		return nil, err
	}

	var monitor *capture.Monitor
	if cfg.Workflow.CameraMonitor && !cfg.Sorting.MockMode {
		monitor = capture.NewMonitor(cfg.Capture.Device, logger, nil, nil)
	}

	return &components{
		controller: ctrl,
		history:    historyStore,
		csv:        csv,
		mover:      mover,
		notifier:   notifier,
		monitor:    monitor,
	}, nil
}

// loadCardIndex loads the local card index. A missing index file yields an
// empty index: recognition degrades to remote lookups (or OCR-only results
// in mock mode) until the operator provides one.
func loadCardIndex(path string, logger *slog.Logger) (*cards.Index, error) {
	index, err := cards.LoadIndex(path)
	if err != nil {
		return nil, fmt.Errorf("load card index: %w", err)
	}
	if index.Len() == 0 {
		logger.Warn("card index empty; local recognition disabled",
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "download a card index to enable offline matching"))
	} else {
		logger.Info("card index loaded",
			logging.String("path", path),
			logging.Int("cards", index.Len()))
	}
	return index, nil
}

// buildPricer assembles the provider chain. The TCGplayer provider is only
// registered when credentials are configured; a credential-less tcgplayer
// fallback is dropped with a warning rather than failing startup.
func buildPricer(cfg *config.Config, scryfallClient *scryfall.Client, logger *slog.Logger) (*pricing.Resolver, string, error) {
	providers := []pricing.Provider{pricing.NewScryfallProvider(scryfallClient)}

	hasTCGCreds := cfg.TCGplayer.PublicKey != "" && cfg.TCGplayer.SecretKey != ""
	if hasTCGCreds {
		tcg, err := pricing.NewTCGplayerProvider(pricing.TCGplayerOptions{
			PublicKey: cfg.TCGplayer.PublicKey,
			SecretKey: cfg.TCGplayer.SecretKey,
			BaseURL:   cfg.TCGplayer.BaseURL,
			TokenURL:  cfg.TCGplayer.TokenURL,
			Timeout:   time.Duration(cfg.Pricing.RequestTimeout) * time.Second,
		}, logger)
		if err != nil {
			return nil, "", fmt.Errorf("tcgplayer provider: %w", err)
		}
		providers = append(providers, tcg)
	}

	fallback := cfg.Pricing.Fallback
	if fallback == pricing.SourceTCGplayer && !hasTCGCreds {
		logger.Warn("tcgplayer fallback disabled: credentials not configured",
			logging.String(logging.FieldErrorHint, "set TCGPLAYER_PUBLIC_KEY/TCGPLAYER_SECRET_KEY to enable it"))
		fallback = ""
	}
	if fallback == cfg.Pricing.Primary {
		fallback = ""
	}

	resolver, err := pricing.NewResolver(providers, cfg.Pricing.Primary, fallback,
		time.Duration(cfg.Pricing.CacheTTLHours)*time.Hour, logger)
	if err != nil {
		return nil, "", fmt.Errorf("price resolver: %w", err)
	}
	return resolver, fallback, nil
}

func buildCaptureAndOCR(cfg *config.Config) (capture.Source, ocr.Engine, error) {
	if cfg.Sorting.MockMode {
		return capture.MockSource{}, ocr.NewMockEngine(), nil
	}

	frameDir := filepath.Join(cfg.Paths.DataDir, "frames")
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create frame directory: %w", err)
	}
	source, err := capture.NewCommandSource(
		cfg.Capture.Command,
		cfg.Capture.Args,
		cfg.Capture.Device,
		frameDir,
		time.Duration(cfg.Capture.Timeout)*time.Second,
	)
	if err != nil {
		return nil, nil, err
	}

	engine, err := ocr.NewTesseractEngine(cfg.OCR.Binary, cfg.OCR.Language, cfg.OCR.PSM,
		time.Duration(cfg.OCR.Timeout)*time.Second)
	if err != nil {
		return nil, nil, err
	}
	return source, engine, nil
}

func buildMover(cfg *config.Config, logger *slog.Logger) (actuator.Mover, error) {
	if cfg.Sorting.MockMode {
		return actuator.NewNopMover(logger), nil
	}
	return actuator.NewServoBank(actuator.Options{
		SerialPort:   cfg.Actuator.SerialPort,
		Baud:         cfg.Actuator.Baud,
		BoardAddress: cfg.Actuator.BoardAddress,
		ChannelMap:   cfg.Actuator.ChannelMap,
		OpenAngle:    cfg.Actuator.OpenAngle,
		ClosedAngle:  cfg.Actuator.ClosedAngle,
		Dwell:        time.Duration(cfg.Actuator.DwellMillis) * time.Millisecond,
	}, logger)
}
