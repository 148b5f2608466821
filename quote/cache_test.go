package quote

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLookuper struct {
	calls   [][]string
	quotes  map[string]Quote
	lastKey string
}

func (s *stubLookuper) Lookup(_ context.Context, apiKey string, symbols []string) ([]Quote, error) {
	s.lastKey = apiKey
	s.calls = append(s.calls, append([]string(nil), symbols...))
	var out []Quote
	for _, sym := range symbols {
		if q, ok := s.quotes[sym]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func testQuote(symbol string, price string) Quote {
	return Quote{Symbol: symbol, Name: symbol, Slug: symbol, PriceUSD: decimal.RequireFromString(price)}
}

func TestCacheServesLiveEntries(t *testing.T) {
	stub := &stubLookuper{quotes: map[string]Quote{
		"BTC": testQuote("BTC", "64000"),
		"ETH": testQuote("ETH", "3000"),
	}}
	cache := NewCache(stub, time.Minute)

	quotes, err := cache.Fetch(context.Background(), "key", []string{"BTC", "ETH"})
	require.NoError(t, err)
	assert.Len(t, quotes, 2)
	require.Len(t, stub.calls, 1)

	// Second fetch within the liveness window hits the cache only
	quotes, err = cache.Fetch(context.Background(), "key", []string{"BTC", "ETH"})
	require.NoError(t, err)
	assert.Len(t, quotes, 2)
	assert.Len(t, stub.calls, 1)
}

func TestCacheRefreshesExpiredEntries(t *testing.T) {
	stub := &stubLookuper{quotes: map[string]Quote{
		"BTC": testQuote("BTC", "64000"),
		"ETH": testQuote("ETH", "3000"),
	}}
	cache := NewCache(stub, time.Minute)

	current := time.Now()
	cache.now = func() time.Time { return current }

	_, err := cache.Fetch(context.Background(), "key", []string{"BTC"})
	require.NoError(t, err)

	// BTC is still live, ETH was never fetched: only ETH goes upstream
	current = current.Add(30 * time.Second)
	_, err = cache.Fetch(context.Background(), "key", []string{"BTC", "ETH"})
	require.NoError(t, err)
	require.Len(t, stub.calls, 2)
	assert.Equal(t, []string{"ETH"}, stub.calls[1])

	// Past the window everything refreshes
	current = current.Add(2 * time.Minute)
	_, err = cache.Fetch(context.Background(), "key", []string{"BTC", "ETH"})
	require.NoError(t, err)
	require.Len(t, stub.calls, 3)
	assert.Equal(t, []string{"BTC", "ETH"}, stub.calls[2])
}

// gatedLookuper stalls lookups for one symbol until released
type gatedLookuper struct {
	inner       *stubLookuper
	blockSymbol string
	entered     chan struct{}
	release     chan struct{}
}

func (g *gatedLookuper) Lookup(ctx context.Context, apiKey string, symbols []string) ([]Quote, error) {
	for _, sym := range symbols {
		if sym == g.blockSymbol {
			close(g.entered)
			<-g.release
			break
		}
	}
	return g.inner.Lookup(ctx, apiKey, symbols)
}

func TestCacheServesLiveEntriesWhileUpstreamIsSlow(t *testing.T) {
	stub := &stubLookuper{quotes: map[string]Quote{
		"BTC": testQuote("BTC", "64000"),
		"ETH": testQuote("ETH", "3000"),
	}}
	gated := &gatedLookuper{
		inner:       stub,
		blockSymbol: "BTC",
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	cache := NewCache(gated, time.Minute)

	// Warm ETH so the second fetch is a pure cache read
	_, err := cache.Fetch(context.Background(), "key", []string{"ETH"})
	require.NoError(t, err)

	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		_, _ = cache.Fetch(context.Background(), "key", []string{"BTC"})
	}()
	<-gated.entered

	// The cached read must not queue behind the stalled upstream call
	fastDone := make(chan struct{})
	go func() {
		defer close(fastDone)
		quotes, err := cache.Fetch(context.Background(), "key", []string{"ETH"})
		assert.NoError(t, err)
		assert.Len(t, quotes, 1)
	}()

	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Cached fetch blocked behind a slow upstream call")
	}

	close(gated.release)
	<-slowDone
}

func TestCacheFetchFreshBypassesReads(t *testing.T) {
	stub := &stubLookuper{quotes: map[string]Quote{"BTC": testQuote("BTC", "64000")}}
	cache := NewCache(stub, time.Minute)

	_, err := cache.Fetch(context.Background(), "key", []string{"BTC"})
	require.NoError(t, err)

	_, err = cache.FetchFresh(context.Background(), "key", []string{"BTC"})
	require.NoError(t, err)
	assert.Len(t, stub.calls, 2)

	// FetchFresh still populated the cache for subsequent reads
	_, err = cache.Fetch(context.Background(), "key", []string{"BTC"})
	require.NoError(t, err)
	assert.Len(t, stub.calls, 2)
}
