package controller

import (
	"time"

	"cardsort/internal/cards"
)

// Update is one cycle outcome delivered on the controller's update
// channel. Err is non-empty for a failed cycle, in which case the routing
// fields are zero.
type Update struct {
	CycleID     string
	At          time.Time
	Card        cards.Recognition
	PriceUSD    *float64
	PriceSource string
	Bin         string
	Reason      string
	Flags       []string
	Err         string
}

// Failed reports whether the cycle produced an error instead of a routed
// card.
func (u Update) Failed() bool { return u.Err != "" }

// Snapshot is a point-in-time view of the session for the control surface.
type Snapshot struct {
	Running             bool
	Mode                string
	PriceThresholdUSD   float64
	PriceSourcePrimary  string
	PriceSourceFallback string
	DisabledBins        []string
	Counts              map[string]int
	LastBin             string
	TotalSorted         int
}
