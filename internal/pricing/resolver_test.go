package pricing

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProvider struct {
	name  string
	price *float64
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Price(context.Context, Query) (*float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.price, nil
}

func ptr(v float64) *float64 { return &v }

func newTestResolver(t *testing.T, primary, fallback *fakeProvider) *Resolver {
	t.Helper()
	resolver, err := NewResolver([]Provider{primary, fallback}, primary.name, fallback.name, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return resolver
}

func TestResolvePrimaryWins(t *testing.T) {
	primary := &fakeProvider{name: "scryfall", price: ptr(2.5)}
	fallback := &fakeProvider{name: "tcgplayer", price: ptr(9.99)}
	resolver := newTestResolver(t, primary, fallback)

	result := resolver.Resolve(context.Background(), Query{Name: "Counterspell"})
	if result.Price == nil || *result.Price != 2.5 {
		t.Fatalf("Price = %v, want 2.5", result.Price)
	}
	if result.Source != "scryfall" {
		t.Errorf("Source = %q, want scryfall", result.Source)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback consulted %d times, want 0", fallback.calls)
	}
}

func TestResolveFallbackOnNull(t *testing.T) {
	primary := &fakeProvider{name: "scryfall"}
	fallback := &fakeProvider{name: "tcgplayer", price: ptr(1.25)}
	resolver := newTestResolver(t, primary, fallback)

	result := resolver.Resolve(context.Background(), Query{Name: "Obscure Promo"})
	if result.Price == nil || *result.Price != 1.25 {
		t.Fatalf("Price = %v, want fallback 1.25", result.Price)
	}
	if result.Source != "tcgplayer" {
		t.Errorf("Source = %q, want tcgplayer", result.Source)
	}
}

func TestResolveCachesHits(t *testing.T) {
	primary := &fakeProvider{name: "scryfall", price: ptr(4)}
	fallback := &fakeProvider{name: "tcgplayer"}
	resolver := newTestResolver(t, primary, fallback)

	query := Query{Name: "Dark Ritual", SetCode: "lea", CollectorNumber: "98"}
	resolver.Resolve(context.Background(), query)
	result := resolver.Resolve(context.Background(), query)

	if !result.FromCache {
		t.Error("second resolve should hit the cache")
	}
	if primary.calls != 1 {
		t.Errorf("provider called %d times, want 1", primary.calls)
	}
	if result.Source != "scryfall" {
		t.Errorf("cached Source = %q, want scryfall", result.Source)
	}
}

func TestResolveCachesNull(t *testing.T) {
	primary := &fakeProvider{name: "scryfall"}
	fallback := &fakeProvider{name: "tcgplayer"}
	resolver := newTestResolver(t, primary, fallback)

	query := Query{Name: "Unpriced Card"}
	resolver.Resolve(context.Background(), query)
	result := resolver.Resolve(context.Background(), query)

	if !result.FromCache || result.Price != nil {
		t.Errorf("null answer should be cached, got %+v", result)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("providers called %d/%d times, want 1/1", primary.calls, fallback.calls)
	}
}

func TestResolveErrorNotCached(t *testing.T) {
	primary := &fakeProvider{name: "scryfall", err: errors.New("timeout")}
	fallback := &fakeProvider{name: "tcgplayer", err: errors.New("timeout")}
	resolver := newTestResolver(t, primary, fallback)

	query := Query{Name: "Flaky Card"}
	resolver.Resolve(context.Background(), query)
	result := resolver.Resolve(context.Background(), query)

	if result.FromCache {
		t.Error("errored lookups must not be cached")
	}
	if primary.calls != 2 {
		t.Errorf("primary called %d times, want retry on second resolve", primary.calls)
	}
}

func TestResolveCacheExpires(t *testing.T) {
	primary := &fakeProvider{name: "scryfall", price: ptr(7)}
	fallback := &fakeProvider{name: "tcgplayer"}
	resolver := newTestResolver(t, primary, fallback)

	current := time.Now()
	resolver.now = func() time.Time { return current }

	query := Query{Name: "Counterspell"}
	resolver.Resolve(context.Background(), query)

	current = current.Add(2 * time.Hour)
	result := resolver.Resolve(context.Background(), query)

	if result.FromCache {
		t.Error("expired entry should not be served from cache")
	}
	if primary.calls != 2 {
		t.Errorf("provider called %d times, want 2", primary.calls)
	}
}

func TestSetSourcesClearsCache(t *testing.T) {
	primary := &fakeProvider{name: "scryfall", price: ptr(3)}
	fallback := &fakeProvider{name: "tcgplayer", price: ptr(5)}
	resolver := newTestResolver(t, primary, fallback)

	resolver.Resolve(context.Background(), Query{Name: "Counterspell"})
	if resolver.CacheSize() != 1 {
		t.Fatalf("CacheSize = %d, want 1", resolver.CacheSize())
	}

	if err := resolver.SetSources("tcgplayer", "scryfall"); err != nil {
		t.Fatalf("SetSources: %v", err)
	}
	if resolver.CacheSize() != 0 {
		t.Errorf("CacheSize = %d after source change, want 0", resolver.CacheSize())
	}

	result := resolver.Resolve(context.Background(), Query{Name: "Counterspell"})
	if result.Source != "tcgplayer" {
		t.Errorf("Source = %q after swap, want tcgplayer", result.Source)
	}
}

func TestSetSourcesRejectsUnknown(t *testing.T) {
	primary := &fakeProvider{name: "scryfall", price: ptr(3)}
	fallback := &fakeProvider{name: "tcgplayer"}
	resolver := newTestResolver(t, primary, fallback)

	if err := resolver.SetSources("ebay", ""); err == nil {
		t.Error("expected error for unknown source")
	}
	if primary2, _ := resolver.Sources(); primary2 != "scryfall" {
		t.Errorf("failed SetSources must not change sources, got %q", primary2)
	}
}

func TestCacheKeyNormalizesName(t *testing.T) {
	a := Query{Name: "Lightning Bolt", SetCode: "lea", CollectorNumber: "161"}
	b := Query{Name: "  LIGHTNING BOLT ", SetCode: "lea", CollectorNumber: "161"}
	if a.CacheKey() != b.CacheKey() {
		t.Errorf("keys differ: %q vs %q", a.CacheKey(), b.CacheKey())
	}
	c := Query{Name: "Lightning Bolt", SetCode: "m10", CollectorNumber: "146"}
	if a.CacheKey() == c.CacheKey() {
		t.Error("different printings must not share a cache key")
	}
}
