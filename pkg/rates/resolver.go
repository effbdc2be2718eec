package rates

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Resolver resolves exchange rates to the base currency, caching successful
// lookups so the same (date, currency) pair never hits the source twice.
// The base currency short-circuits to 1 without a lookup.
type Resolver struct {
	source       Source
	baseCurrency string

	mu    sync.RWMutex
	cache map[cacheKey]decimal.Decimal
}

type cacheKey struct {
	date     string // YYYY-MM-DD, exact day
	currency string
}

// NewResolver creates a new Resolver over a rate source.
func NewResolver(source Source, baseCurrency string) *Resolver {
	return &Resolver{
		source:       source,
		baseCurrency: baseCurrency,
		cache:        make(map[cacheKey]decimal.Decimal),
	}
}

// BaseCurrency returns the configured base currency.
func (r *Resolver) BaseCurrency() string {
	return r.baseCurrency
}

// Rate returns the daily rate of a currency on a date. ok is false when the
// rate is unavailable; unavailable results are not cached so a later call
// can retry.
func (r *Resolver) Rate(date time.Time, currency string) (decimal.Decimal, bool, error) {
	if currency == r.baseCurrency {
		return decimal.NewFromInt(1), true, nil
	}

	key := cacheKey{date: date.Format("2006-01-02"), currency: currency}

	r.mu.RLock()
	cached, hit := r.cache[key]
	r.mu.RUnlock()
	if hit {
		return cached, true, nil
	}

	rate, ok, err := r.source.Rate(date, currency)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}

	r.mu.Lock()
	r.cache[key] = rate
	r.mu.Unlock()

	return rate, true, nil
}
