package quote

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// lookuper is the upstream a Cache refreshes from
type lookuper interface {
	Lookup(ctx context.Context, apiKey string, symbols []string) ([]Quote, error)
}

type cachedQuote struct {
	quote     Quote
	fetchedAt time.Time
}

// Cache keeps recent quotes so that closely spaced updates for overlapping
// symbol sets hit the upstream API once. Entries are keyed by symbol.
type Cache struct {
	upstream lookuper
	ttl      time.Duration

	mu      sync.Mutex
	entries map[string]cachedQuote
	now     func() time.Time
}

// NewCache wraps a client with a per-symbol cache of the given liveness window
func NewCache(upstream lookuper, ttl time.Duration) *Cache {
	return &Cache{
		upstream: upstream,
		ttl:      ttl,
		entries:  make(map[string]cachedQuote),
		now:      time.Now,
	}
}

// Fetch returns quotes for the symbols, serving live cache entries and
// refreshing the rest in a single upstream call. The lock is not held across
// the upstream call, which can spend a long time in retries; concurrent
// fetches of the same cold symbol may each go upstream, last write wins.
func (c *Cache) Fetch(ctx context.Context, apiKey string, symbols []string) ([]Quote, error) {
	c.mu.Lock()
	now := c.now()
	var have []Quote
	var need []string
	for _, symbol := range symbols {
		entry, ok := c.entries[symbol]
		if ok && now.Sub(entry.fetchedAt) < c.ttl {
			have = append(have, entry.quote)
		} else {
			need = append(need, symbol)
		}
	}
	c.mu.Unlock()

	if len(need) == 0 {
		return have, nil
	}
	log.WithField("symbols", need).Debug("Fetching fresh quotes")

	refreshed, err := c.upstream.Lookup(ctx, apiKey, need)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.store(refreshed)
	c.mu.Unlock()

	return append(have, refreshed...), nil
}

// FetchFresh bypasses cache reads but still stores the results. Used for
// ticker and API key validation, where a stale answer would mislead.
func (c *Cache) FetchFresh(ctx context.Context, apiKey string, symbols []string) ([]Quote, error) {
	refreshed, err := c.upstream.Lookup(ctx, apiKey, symbols)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.store(refreshed)
	c.mu.Unlock()
	return refreshed, nil
}

// store records quotes; callers must hold c.mu
func (c *Cache) store(quotes []Quote) {
	now := c.now()
	for _, q := range quotes {
		c.entries[q.Symbol] = cachedQuote{quote: q, fetchedAt: now}
	}
}
