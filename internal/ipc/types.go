package ipc

// StartRequest starts the sorting loop.
type StartRequest struct{}

// StartResponse indicates whether sorting was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the sorting loop.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped     bool `json:"stopped"`
	TotalSorted int  `json:"total_sorted"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// DependencyStatus describes availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// StatusResponse represents combined daemon/session status information.
type StatusResponse struct {
	Running             bool               `json:"running"`
	Mode                string             `json:"mode"`
	PriceThresholdUSD   float64            `json:"price_threshold_usd"`
	PriceSourcePrimary  string             `json:"price_source_primary"`
	PriceSourceFallback string             `json:"price_source_fallback"`
	DisabledBins        []string           `json:"disabled_bins"`
	Counts              map[string]int     `json:"counts"`
	LastBin             string             `json:"last_bin"`
	TotalSorted         int                `json:"total_sorted"`
	StateFilePath       string             `json:"state_file_path"`
	HistoryDBPath       string             `json:"history_db_path"`
	CSVDir              string             `json:"csv_dir"`
	LockPath            string             `json:"lock_path"`
	SocketPath          string             `json:"socket_path"`
	PID                 int                `json:"pid"`
	Dependencies        []DependencyStatus `json:"dependencies"`
}

// CycleResult is the wire form of one sort cycle outcome.
type CycleResult struct {
	CycleID         string   `json:"cycle_id"`
	SortedAt        string   `json:"sorted_at"`
	Name            string   `json:"name"`
	SetCode         string   `json:"set_code"`
	CollectorNumber string   `json:"collector_number"`
	Confidence      float64  `json:"confidence"`
	PriceUSD        *float64 `json:"price_usd"`
	PriceSource     string   `json:"price_source"`
	Bin             string   `json:"bin"`
	Reason          string   `json:"reason"`
	Flags           []string `json:"flags"`
	Mode            string   `json:"mode"`
	Error           string   `json:"error"`
}

// RunOnceRequest runs a single sort cycle.
type RunOnceRequest struct{}

// RunOnceResponse carries the outcome of the cycle.
type RunOnceResponse struct {
	Cycle CycleResult `json:"cycle"`
}

// SetModeRequest switches the routing mode.
type SetModeRequest struct {
	Mode string `json:"mode"`
}

// SetModeResponse echoes the applied mode.
type SetModeResponse struct {
	Mode string `json:"mode"`
}

// SetThresholdRequest updates the price threshold.
type SetThresholdRequest struct {
	ThresholdUSD float64 `json:"threshold_usd"`
}

// SetThresholdResponse echoes the applied threshold.
type SetThresholdResponse struct {
	ThresholdUSD float64 `json:"threshold_usd"`
}

// SetSourcesRequest reorders the price providers.
type SetSourcesRequest struct {
	Primary  string `json:"primary"`
	Fallback string `json:"fallback"`
}

// SetSourcesResponse echoes the applied provider order.
type SetSourcesResponse struct {
	Primary  string `json:"primary"`
	Fallback string `json:"fallback"`
}

// SetBinRequest enables or disables a bin.
type SetBinRequest struct {
	Bin     string `json:"bin"`
	Enabled bool   `json:"enabled"`
}

// SetBinResponse echoes the applied bin state.
type SetBinResponse struct {
	Bin     string `json:"bin"`
	Enabled bool   `json:"enabled"`
}

// TestBinRequest fires one drop on a bin's gate without a card.
type TestBinRequest struct {
	Bin string `json:"bin"`
}

// TestBinResponse indicates the gate was cycled.
type TestBinResponse struct {
	Triggered bool `json:"triggered"`
}

// HistoryRequest fetches the newest sort records.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse contains sort records, newest first.
type HistoryResponse struct {
	Cycles []CycleResult `json:"cycles"`
}

// HistoryClearRequest removes all sort records.
type HistoryClearRequest struct{}

// HistoryClearResponse indicates the history was cleared.
type HistoryClearResponse struct {
	Cleared bool `json:"cleared"`
}

// CountsRequest fetches per-bin totals.
type CountsRequest struct{}

// CountsResponse reports session and lifetime totals per bin.
type CountsResponse struct {
	Session  map[string]int `json:"session"`
	Lifetime map[string]int `json:"lifetime"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
