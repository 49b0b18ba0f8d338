package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateUnavailable is returned by Cache.Rate when the cached value is
// expired and the fetcher could not produce a fresh one.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// Fetcher retrieves the current exchange rate from an external source.
type Fetcher interface {
	FetchRate(ctx context.Context) (decimal.Decimal, error)
}

// Cache holds a single exchange rate and refreshes it through the fetcher
// once the refresh interval has elapsed. It is safe for concurrent use: the
// lock is held across the whole check-fetch-store sequence, so concurrent
// callers that observe an expired entry collapse into a single upstream fetch.
type Cache struct {
	mu       sync.Mutex
	fetcher  Fetcher
	interval time.Duration
	now      func() time.Time

	rate    decimal.Decimal
	expires time.Time
}

// NewCache creates a cache that refreshes through fetcher every interval.
// The cache starts expired, forcing a fetch on first use.
func NewCache(fetcher Fetcher, interval time.Duration) *Cache {
	c := &Cache{
		fetcher:  fetcher,
		interval: interval,
		now:      time.Now,
		rate:     decimal.Zero,
	}
	c.expires = c.now()
	return c
}

// Rate returns the cached exchange rate, refreshing it first when expired.
// On refresh failure the stale entry is left untouched and the error wraps
// ErrRateUnavailable, so a later call may still succeed.
func (c *Cache) Rate(ctx context.Context) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Before(c.expires) {
		return c.rate, nil
	}

	rate, err := c.fetcher.FetchRate(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrRateUnavailable, err)
	}

	c.rate = rate
	c.expires = now.Add(c.interval)
	return c.rate, nil
}
