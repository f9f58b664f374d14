package state

import (
	"sort"
)

// Runtime is the persisted session state. Counts and DisabledBins are
// always non-nil after Normalize.
type Runtime struct {
	Mode                string         `json:"mode"`
	PriceThresholdUSD   float64        `json:"price_threshold_usd"`
	PriceSourcePrimary  string         `json:"price_source_primary"`
	PriceSourceFallback string         `json:"price_source_fallback"`
	DisabledBins        []string       `json:"disabled_bins"`
	Counts              map[string]int `json:"counts"`
	LastBin             string         `json:"last_bin,omitempty"`
}

// Normalize ensures collection fields are non-nil and DisabledBins is
// sorted and deduplicated, so saved files are stable byte-for-byte.
func (r *Runtime) Normalize() {
	if r.Counts == nil {
		r.Counts = make(map[string]int)
	}
	seen := make(map[string]struct{}, len(r.DisabledBins))
	bins := r.DisabledBins[:0]
	for _, bin := range r.DisabledBins {
		if _, dup := seen[bin]; dup || bin == "" {
			continue
		}
		seen[bin] = struct{}{}
		bins = append(bins, bin)
	}
	r.DisabledBins = bins
	sort.Strings(r.DisabledBins)
}

// Clone returns a deep copy, safe to hand across goroutines.
func (r *Runtime) Clone() *Runtime {
	out := *r
	out.DisabledBins = append([]string(nil), r.DisabledBins...)
	out.Counts = make(map[string]int, len(r.Counts))
	for bin, count := range r.Counts {
		out.Counts[bin] = count
	}
	return &out
}

// BinDisabled reports whether bin is currently disabled.
func (r *Runtime) BinDisabled(bin string) bool {
	for _, disabled := range r.DisabledBins {
		if disabled == bin {
			return true
		}
	}
	return false
}

// SetBinDisabled toggles one bin and keeps DisabledBins normalized.
func (r *Runtime) SetBinDisabled(bin string, disabled bool) {
	if disabled {
		if !r.BinDisabled(bin) {
			r.DisabledBins = append(r.DisabledBins, bin)
		}
	} else {
		kept := r.DisabledBins[:0]
		for _, existing := range r.DisabledBins {
			if existing != bin {
				kept = append(kept, existing)
			}
		}
		r.DisabledBins = kept
	}
	r.Normalize()
}

// DisabledSet returns the disabled bins as a lookup map for the router.
func (r *Runtime) DisabledSet() map[string]bool {
	out := make(map[string]bool, len(r.DisabledBins))
	for _, bin := range r.DisabledBins {
		out[bin] = true
	}
	return out
}

// RecordCycle bumps the bin's counter and records it as the last
// destination.
func (r *Runtime) RecordCycle(bin string) {
	if r.Counts == nil {
		r.Counts = make(map[string]int)
	}
	r.Counts[bin]++
	r.LastBin = bin
}

// TotalCount sums all bin counters.
func (r *Runtime) TotalCount() int {
	total := 0
	for _, count := range r.Counts {
		total += count
	}
	return total
}
