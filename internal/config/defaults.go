package config

const (
	defaultDataDir   = "~/.local/share/cardsort"
	defaultLogDir    = "~/.local/share/cardsort/logs"
	defaultCSVDir    = "~/.local/share/cardsort/csv"
	defaultStateFile = "~/.local/share/cardsort/state.json"
	defaultCardIndex = "~/.config/cardsort/card_index.json"

	defaultMode              = "price"
	defaultPriceThresholdUSD = 0.25

	defaultExactMatchConfidence  = 0.9
	defaultRemoteMatchConfidence = 0.85
	defaultOCROnlyConfidence     = 0.5
	defaultSimilarityCutoff      = 0.5
	defaultConfidenceFloor       = 0.5

	defaultPricePrimary          = "scryfall"
	defaultPriceFallback         = "tcgplayer"
	defaultCacheTTLHours         = 24
	defaultPricingRequestTimeout = 10

	defaultScryfallBaseURL  = "https://api.scryfall.com"
	defaultTCGplayerBaseURL = "https://api.tcgplayer.com"
	defaultTCGplayerToken   = "https://api.tcgplayer.com/token"

	defaultCaptureCommand = "fswebcam"
	defaultCaptureDevice  = "/dev/video0"
	defaultCaptureTimeout = 10

	defaultOCRBinary   = "tesseract"
	defaultOCRLanguage = "eng"
	defaultOCRPSM      = 7
	defaultOCRTimeout  = 15

	defaultSerialPort   = "/dev/ttyUSB0"
	defaultSerialBaud   = 57600
	defaultBoardAddress = 0x40
	defaultOpenAngle    = 90
	defaultClosedAngle  = 0
	defaultDwellMillis  = 300

	defaultNotifyRequestTimeout = 10
	defaultMilestoneEvery       = 100

	defaultCycleDelayMillis   = 250
	defaultStopTimeoutSeconds = 5

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			CSVDir:    defaultCSVDir,
			StateFile: defaultStateFile,
			CardIndex: defaultCardIndex,
		},
		Sorting: Sorting{
			Mode:              defaultMode,
			PriceThresholdUSD: defaultPriceThresholdUSD,
		},
		Recognition: Recognition{
			ExactMatchConfidence:  defaultExactMatchConfidence,
			RemoteMatchConfidence: defaultRemoteMatchConfidence,
			OCROnlyConfidence:     defaultOCROnlyConfidence,
			SimilarityCutoff:      defaultSimilarityCutoff,
			ConfidenceFloor:       defaultConfidenceFloor,
		},
		Pricing: Pricing{
			Primary:        defaultPricePrimary,
			Fallback:       defaultPriceFallback,
			CacheTTLHours:  defaultCacheTTLHours,
			RequestTimeout: defaultPricingRequestTimeout,
		},
		Scryfall: Scryfall{
			BaseURL: defaultScryfallBaseURL,
		},
		TCGplayer: TCGplayer{
			BaseURL:  defaultTCGplayerBaseURL,
			TokenURL: defaultTCGplayerToken,
		},
		Capture: Capture{
			Command: defaultCaptureCommand,
			Device:  defaultCaptureDevice,
			Timeout: defaultCaptureTimeout,
		},
		OCR: OCR{
			Binary:   defaultOCRBinary,
			Language: defaultOCRLanguage,
			PSM:      defaultOCRPSM,
			Timeout:  defaultOCRTimeout,
		},
		Actuator: Actuator{
			SerialPort:   defaultSerialPort,
			Baud:         defaultSerialBaud,
			BoardAddress: defaultBoardAddress,
			ChannelMap: map[string]int{
				"price_bin":      0,
				"combined_bin":   1,
				"white_blue_bin": 2,
				"black_bin":      3,
				"red_bin":        4,
				"green_bin":      5,
			},
			OpenAngle:   defaultOpenAngle,
			ClosedAngle: defaultClosedAngle,
			DwellMillis: defaultDwellMillis,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Errors:         true,
			Session:        true,
			MilestoneEvery: defaultMilestoneEvery,
		},
		Workflow: Workflow{
			CycleDelayMillis:   defaultCycleDelayMillis,
			StopTimeoutSeconds: defaultStopTimeoutSeconds,
			CameraMonitor:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
