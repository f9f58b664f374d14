package pricing

import (
	"context"
	"errors"
	"fmt"

	"cardsort/internal/scryfall"
)

// ScryfallProvider prices cards through the Scryfall API. Scryfall embeds
// prices in the card payload, so pricing reuses the identifier's lookups.
type ScryfallProvider struct {
	client *scryfall.Client
}

// NewScryfallProvider wraps a Scryfall client as a price provider.
func NewScryfallProvider(client *scryfall.Client) *ScryfallProvider {
	return &ScryfallProvider{client: client}
}

// Name implements Provider.
func (p *ScryfallProvider) Name() string { return SourceScryfall }

// Price fetches the card and extracts its USD price. A card Scryfall does
// not know, or knows but has no price for, yields a nil price.
func (p *ScryfallProvider) Price(ctx context.Context, query Query) (*float64, error) {
	var (
		card *scryfall.Card
		err  error
	)
	if query.SetCode != "" && query.CollectorNumber != "" {
		card, err = p.client.ByCollector(ctx, query.SetCode, query.CollectorNumber)
	} else {
		card, err = p.client.Named(ctx, query.Name)
	}
	if err != nil {
		if errors.Is(err, scryfall.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("scryfall price lookup: %w", err)
	}
	return card.PriceUSD(), nil
}
