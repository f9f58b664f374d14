package pricing

import (
	"context"
	"strings"
)

// Provider names accepted in configuration and over the control surface.
const (
	SourceScryfall  = "scryfall"
	SourceTCGplayer = "tcgplayer"
)

// Query identifies the card to price. SetCode and CollectorNumber are
// optional; providers that can use them prefer the printing-exact lookup.
type Query struct {
	Name            string
	SetCode         string
	CollectorNumber string
}

// CacheKey returns the canonical cache key for the query.
func (q Query) CacheKey() string {
	return strings.ToLower(strings.TrimSpace(q.Name)) + "|" + q.SetCode + "|" + q.CollectorNumber
}

// Provider prices a single card. A nil price with a nil error is a
// definitive "this card has no price" answer; an error means the provider
// could not answer at all.
type Provider interface {
	Name() string
	Price(ctx context.Context, query Query) (*float64, error)
}
