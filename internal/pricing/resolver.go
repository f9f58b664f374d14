package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cardsort/internal/logging"
)

// Result is the outcome of one price resolution. A nil Price means no
// configured source could price the card. Source names the provider that
// answered; cached answers keep the source recorded when they were stored.
type Result struct {
	Price     *float64
	Source    string
	FromCache bool
}

type cacheEntry struct {
	price    *float64
	source   string
	storedAt time.Time
}

// Resolver orders price providers primary then fallback and caches
// definitive answers under a TTL. The fallback is consulted only when the
// primary definitively reports no price; provider errors are treated the
// same way but are never cached, so transient outages do not pin a "no
// price" answer for the full TTL.
type Resolver struct {
	mu        sync.Mutex
	providers map[string]Provider
	primary   string
	fallback  string
	cache     map[string]cacheEntry
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewResolver creates a resolver over the given providers. primary must
// name a registered provider; fallback may be empty.
func NewResolver(providers []Provider, primary, fallback string, ttl time.Duration, logger *slog.Logger) (*Resolver, error) {
	byName := make(map[string]Provider, len(providers))
	for _, provider := range providers {
		byName[provider.Name()] = provider
	}
	resolver := &Resolver{
		providers: byName,
		cache:     make(map[string]cacheEntry),
		ttl:       ttl,
		now:       time.Now,
		logger:    logging.NewComponentLogger(logger, "pricer"),
	}
	if err := resolver.SetSources(primary, fallback); err != nil {
		return nil, err
	}
	return resolver, nil
}

// SetSources reorders the provider chain. The cache is dropped because
// cached prices are only valid for the source order that produced them.
func (r *Resolver) SetSources(primary, fallback string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[primary]; !ok {
		return fmt.Errorf("unknown price source %q", primary)
	}
	if fallback != "" {
		if _, ok := r.providers[fallback]; !ok {
			return fmt.Errorf("unknown price source %q", fallback)
		}
	}
	if primary == r.primary && fallback == r.fallback {
		return nil
	}
	r.primary = primary
	r.fallback = fallback
	r.cache = make(map[string]cacheEntry)
	return nil
}

// Sources returns the current primary and fallback provider names.
func (r *Resolver) Sources() (primary, fallback string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.primary, r.fallback
}

// Resolve prices one card. Cache hits short-circuit; otherwise the primary
// provider answers, with the fallback consulted on a definitive null.
func (r *Resolver) Resolve(ctx context.Context, query Query) Result {
	key := query.CacheKey()

	r.mu.Lock()
	primary, fallback := r.primary, r.fallback
	if entry, ok := r.cache[key]; ok && r.now().Sub(entry.storedAt) < r.ttl {
		r.mu.Unlock()
		return Result{Price: entry.price, Source: entry.source, FromCache: true}
	}
	r.mu.Unlock()

	price, source, definitive := r.consult(ctx, primary, query)
	if price == nil && fallback != "" {
		fallbackPrice, fallbackSource, fallbackDefinitive := r.consult(ctx, fallback, query)
		if fallbackPrice != nil {
			price, source = fallbackPrice, fallbackSource
		}
		definitive = definitive && fallbackDefinitive
	}

	if definitive {
		r.mu.Lock()
		r.cache[key] = cacheEntry{price: price, source: source, storedAt: r.now()}
		r.mu.Unlock()
	}
	return Result{Price: price, Source: source}
}

// consult asks one provider. definitive is false on provider error, which
// keeps the answer out of the cache.
func (r *Resolver) consult(ctx context.Context, name string, query Query) (price *float64, source string, definitive bool) {
	provider, ok := r.providers[name]
	if !ok {
		return nil, "", true
	}
	price, err := provider.Price(ctx, query)
	if err != nil {
		r.logger.Warn("price lookup failed",
			logging.String("source", name),
			logging.String(logging.FieldCard, query.Name),
			logging.Error(err))
		return nil, "", false
	}
	if price == nil {
		return nil, "", true
	}
	return price, name, true
}

// CacheSize reports the number of live cache entries, expired included.
func (r *Resolver) CacheSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
