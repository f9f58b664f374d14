package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"cardsort/internal/logging"
)

const (
	// magicCategoryID is TCGplayer's catalog category for Magic cards.
	magicCategoryID = "1"

	// tokenExpiryLeeway refreshes the bearer token shortly before TCGplayer
	// would reject it.
	tokenExpiryLeeway = 30 * time.Second

	tcgMaxAttempts  = 3
	tcgRetryBackoff = 400 * time.Millisecond
)

var errNoResults = errors.New("tcgplayer: no results")

// TCGplayerOptions carries credentials and endpoints for the TCGplayer API.
type TCGplayerOptions struct {
	PublicKey string
	SecretKey string
	BaseURL   string
	TokenURL  string
	Timeout   time.Duration
}

// TCGplayerProvider prices cards through the TCGplayer catalog and pricing
// APIs. Requests carry an OAuth2 client-credentials bearer token that is
// cached and refreshed automatically.
type TCGplayerProvider struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	backoff    time.Duration
}

// TCGplayerOption configures a TCGplayerProvider.
type TCGplayerOption func(*TCGplayerProvider)

// WithTCGplayerHTTPClient overrides the token-authenticated HTTP client.
// Intended for tests; the replacement client sends no bearer token.
func WithTCGplayerHTTPClient(client *http.Client) TCGplayerOption {
	return func(p *TCGplayerProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewTCGplayerProvider creates a TCGplayer price provider.
func NewTCGplayerProvider(opts TCGplayerOptions, logger *slog.Logger, optFns ...TCGplayerOption) (*TCGplayerProvider, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("tcgplayer base url required")
	}
	provider := &TCGplayerProvider{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		logger:  logging.NewComponentLogger(logger, "tcgplayer"),
		backoff: tcgRetryBackoff,
	}
	for _, fn := range optFns {
		fn(provider)
	}

	if provider.httpClient == nil {
		if opts.PublicKey == "" || opts.SecretKey == "" {
			return nil, errors.New("tcgplayer credentials required")
		}
		credentials := &clientcredentials.Config{
			ClientID:     opts.PublicKey,
			ClientSecret: opts.SecretKey,
			TokenURL:     opts.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
		source := oauth2.ReuseTokenSourceWithExpiry(nil, credentials.TokenSource(tokenCtx), tokenExpiryLeeway)
		provider.httpClient = oauth2.NewClient(tokenCtx, source)
		provider.httpClient.Timeout = timeout
	}
	return provider, nil
}

// Name implements Provider.
func (p *TCGplayerProvider) Name() string { return SourceTCGplayer }

// Price resolves the card name to a catalog product and returns its market
// price. An unknown product or a product with no market price yields nil.
func (p *TCGplayerProvider) Price(ctx context.Context, query Query) (*float64, error) {
	name := strings.TrimSpace(query.Name)
	if name == "" {
		return nil, errors.New("tcgplayer: card name required")
	}

	productID, err := p.findProduct(ctx, name)
	if err != nil {
		if errors.Is(err, errNoResults) {
			return nil, nil
		}
		return nil, err
	}

	price, err := p.marketPrice(ctx, productID)
	if err != nil {
		if errors.Is(err, errNoResults) {
			return nil, nil
		}
		return nil, err
	}
	return price, nil
}

func (p *TCGplayerProvider) findProduct(ctx context.Context, name string) (int64, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("categoryId", magicCategoryID)
	params.Set("productTypes", "Cards")
	params.Set("limit", "1")

	var payload struct {
		Results []struct {
			ProductID int64 `json:"productId"`
		} `json:"results"`
	}
	endpoint := p.baseURL + "/catalog/products?" + params.Encode()
	if err := p.getJSON(ctx, endpoint, &payload); err != nil {
		return 0, fmt.Errorf("tcgplayer product search: %w", err)
	}
	if len(payload.Results) == 0 {
		return 0, errNoResults
	}
	return payload.Results[0].ProductID, nil
}

func (p *TCGplayerProvider) marketPrice(ctx context.Context, productID int64) (*float64, error) {
	var payload struct {
		Results []struct {
			SubTypeName string   `json:"subTypeName"`
			MarketPrice *float64 `json:"marketPrice"`
		} `json:"results"`
	}
	endpoint := fmt.Sprintf("%s/pricing/product/%d", p.baseURL, productID)
	if err := p.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("tcgplayer market price: %w", err)
	}

	// Prefer the nonfoil printing, then any priced subtype.
	for _, result := range payload.Results {
		if result.SubTypeName == "Normal" && result.MarketPrice != nil {
			return result.MarketPrice, nil
		}
	}
	for _, result := range payload.Results {
		if result.MarketPrice != nil {
			return result.MarketPrice, nil
		}
	}
	return nil, nil
}

// getJSON fetches endpoint and decodes the body, retrying rate limits and
// server errors with doubling backoff up to tcgMaxAttempts total attempts.
func (p *TCGplayerProvider) getJSON(ctx context.Context, endpoint string, out any) error {
	var lastErr error
	delay := p.backoff

	for attempt := 1; attempt <= tcgMaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}

		retryable, err := p.fetchOnce(ctx, endpoint, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
		p.logger.Debug("retrying tcgplayer request",
			logging.Int("attempt", attempt),
			logging.Error(err))
	}
	return lastErr
}

func (p *TCGplayerProvider) fetchOnce(ctx context.Context, endpoint string, out any) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, errNoResults
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("tcgplayer returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("tcgplayer returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}
