package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound indicates Scryfall has no card for the requested name or
// set/collector-number pair.
var ErrNotFound = errors.New("scryfall: card not found")

// Prices carries the price fields of a Scryfall card payload. Scryfall
// returns prices as decimal strings or null.
type Prices struct {
	USD       string `json:"usd"`
	USDFoil   string `json:"usd_foil"`
	USDEtched string `json:"usd_etched"`
}

// Card models the subset of a Scryfall card object the sorter consumes.
type Card struct {
	Name            string   `json:"name"`
	Set             string   `json:"set"`
	CollectorNumber string   `json:"collector_number"`
	TypeLine        string   `json:"type_line"`
	Colors          []string `json:"colors"`
	ColorIdentity   []string `json:"color_identity"`
	Prices          Prices   `json:"prices"`
}

// PriceUSD returns the card's USD price, preferring the nonfoil printing and
// falling back to foil then etched. Returns nil when no printing is priced.
func (c *Card) PriceUSD() *float64 {
	for _, raw := range []string{c.Prices.USD, c.Prices.USDFoil, c.Prices.USDEtched} {
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		return &value
	}
	return nil
}

// Client provides access to the Scryfall API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a Scryfall client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("scryfall base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Named fetches a card by exact name.
func (c *Client) Named(ctx context.Context, name string) (*Card, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("card name must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/cards/named")
	if err != nil {
		return nil, fmt.Errorf("parse scryfall url: %w", err)
	}
	params := url.Values{}
	params.Set("exact", name)
	endpoint.RawQuery = params.Encode()
	return c.fetchCard(ctx, endpoint.String())
}

// ByCollector fetches a card by set code and collector number.
func (c *Client) ByCollector(ctx context.Context, setCode, collectorNumber string) (*Card, error) {
	setCode = strings.ToLower(strings.TrimSpace(setCode))
	collectorNumber = strings.TrimSpace(collectorNumber)
	if setCode == "" || collectorNumber == "" {
		return nil, errors.New("set code and collector number must not be empty")
	}
	endpoint := fmt.Sprintf("%s/cards/%s/%s", c.baseURL, url.PathEscape(setCode), url.PathEscape(collectorNumber))
	return c.fetchCard(ctx, endpoint)
}

func (c *Client) fetchCard(ctx context.Context, endpoint string) (*Card, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("scryfall returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload Card
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode scryfall response: %w", err)
	}
	return &payload, nil
}
