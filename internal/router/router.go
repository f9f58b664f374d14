package router

import (
	"sort"
	"strings"

	"cardsort/internal/cards"
)

// Mode selects the routing policy.
type Mode string

// Routing modes.
const (
	ModePrice Mode = "price"
	ModeColor Mode = "color"
	ModeMixed Mode = "mixed"
)

// ValidMode reports whether mode names a known routing policy.
func ValidMode(mode Mode) bool {
	switch mode {
	case ModePrice, ModeColor, ModeMixed:
		return true
	}
	return false
}

// Physical bin names. BinCombined is the catch-all every uncertain decision
// lands in.
const (
	BinPrice     = "price_bin"
	BinCombined  = "combined_bin"
	BinWhiteBlue = "white_blue_bin"
	BinBlack     = "black_bin"
	BinRed       = "red_bin"
	BinGreen     = "green_bin"
)

// AllBins returns every routable bin name.
func AllBins() []string {
	return []string{BinPrice, BinCombined, BinWhiteBlue, BinBlack, BinRed, BinGreen}
}

// KnownBin reports whether name is a routable bin.
func KnownBin(name string) bool {
	for _, bin := range AllBins() {
		if bin == name {
			return true
		}
	}
	return false
}

// Decision reasons, in rule priority order.
const (
	ReasonLowConfidence = "low_confidence"
	ReasonUnrecognized  = "unrecognized"
	ReasonUnpriced      = "unpriced"
	ReasonPriceAbove    = "price_above_threshold"
	ReasonPriceBelow    = "price_below_threshold"
	ReasonColorMode     = "color_mode"
	ReasonDefault       = "default"
)

// defaultConfidenceFloor applies when Input leaves the floor unset.
const defaultConfidenceFloor = 0.5

// Input carries everything a routing decision depends on.
type Input struct {
	Recognition     cards.Recognition
	PriceUSD        *float64
	Mode            Mode
	ThresholdUSD    float64
	ConfidenceFloor float64
	Disabled        map[string]bool
}

// Decision is the routed outcome for one cycle. Flags carry diagnostic
// tags (the reason plus any disabled-bin substitutions), sorted so equal
// inputs produce byte-equal decisions.
type Decision struct {
	Bin    string
	Reason string
	Flags  []string
}

// Route decides the destination bin for one card.
//
// Rules, in priority order: confidence below the floor or an unrecognized
// card lands in the combined bin regardless of mode; price mode splits on
// the threshold; color mode routes single-color identities to their color
// bin and everything else to combined; mixed mode tries the price rule and
// falls back to the color rule. A disabled destination redirects along the
// price/combined mutual fallback, recording a "<bin>_disabled" flag.
func Route(in Input) Decision {
	floor := in.ConfidenceFloor
	if floor <= 0 {
		floor = defaultConfidenceFloor
	}

	d := &decider{disabled: in.Disabled, flags: map[string]struct{}{}}

	switch {
	case in.Recognition.Confidence < floor:
		return d.finish(BinCombined, ReasonLowConfidence)
	case !in.Recognition.Recognized():
		return d.finish(BinCombined, ReasonUnrecognized)
	}

	switch in.Mode {
	case ModePrice:
		switch {
		case in.PriceUSD == nil:
			return d.finish(BinCombined, ReasonUnpriced)
		case *in.PriceUSD >= in.ThresholdUSD:
			return d.finish(BinPrice, ReasonPriceAbove)
		default:
			return d.finish(BinCombined, ReasonPriceBelow)
		}
	case ModeColor:
		return d.finish(colorBin(in.Recognition.ColorIdentity), ReasonColorMode)
	case ModeMixed:
		if in.PriceUSD != nil && *in.PriceUSD >= in.ThresholdUSD {
			return d.finish(BinPrice, ReasonPriceAbove)
		}
		return d.finish(colorBin(in.Recognition.ColorIdentity), ReasonColorMode)
	}

	d.flag("fallback")
	return d.finish(BinCombined, ReasonDefault)
}

// colorBin maps a color identity to a bin. Only single-color identities get
// a dedicated bin; white and blue share one. Multicolor and colorless cards
// go to the combined bin.
func colorBin(identity []string) string {
	if len(identity) != 1 {
		return BinCombined
	}
	switch strings.ToUpper(strings.TrimSpace(identity[0])) {
	case "W", "U":
		return BinWhiteBlue
	case "B":
		return BinBlack
	case "R":
		return BinRed
	case "G":
		return BinGreen
	}
	return BinCombined
}

type decider struct {
	disabled map[string]bool
	flags    map[string]struct{}
}

func (d *decider) flag(name string) {
	d.flags[name] = struct{}{}
}

// resolve substitutes a working bin for a disabled target. Price and
// combined fall back to each other; color bins fall back to combined and
// from there to price. When both halves of that pair are disabled the
// first enabled bin takes the card, so a disabled gate is never actuated
// even on state the toggle guard upstream did not produce.
func (d *decider) resolve(bin string) string {
	current := bin
	for i := 0; i < 3; i++ {
		if !d.disabled[current] {
			return current
		}
		d.flag(current + "_disabled")
		if current == BinCombined {
			current = BinPrice
		} else {
			current = BinCombined
		}
	}
	for _, candidate := range AllBins() {
		if !d.disabled[candidate] {
			return candidate
		}
	}
	return current
}

func (d *decider) finish(bin, reason string) Decision {
	d.flag(reason)
	resolved := d.resolve(bin)

	flags := make([]string, 0, len(d.flags))
	for name := range d.flags {
		flags = append(flags, name)
	}
	sort.Strings(flags)
	return Decision{Bin: resolved, Reason: reason, Flags: flags}
}
