package pricing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/repository"
)

// ErrPriceUnavailable means no price for the symbol could be obtained and no
// last-known value exists. The scheduler treats it as non-fatal and retries
// on the next tick.
var ErrPriceUnavailable = errors.New("price unavailable")

// Source returns the current reference price for a symbol.
type Source interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// CachedSource decorates a Source with a last-known-value cache. Upstream
// failures fall back to the cached price; fresh prices are written through to
// the quote store so a restarted engine can settle overdue positions without
// waiting for the feed.
type CachedSource struct {
	upstream Source
	quotes   *repository.QuoteRepository
	now      func() time.Time

	mu   sync.RWMutex
	last map[string]decimal.Decimal
}

// NewCachedSource wraps the upstream source. quotes may be nil, in which case
// the cache is memory-only.
func NewCachedSource(upstream Source, quotes *repository.QuoteRepository) *CachedSource {
	return &CachedSource{
		upstream: upstream,
		quotes:   quotes,
		now:      time.Now,
		last:     make(map[string]decimal.Decimal),
	}
}

// GetPrice queries the upstream source, falling back to the in-memory cache
// and then the persisted quote on failure.
func (s *CachedSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, err := s.upstream.GetPrice(ctx, symbol)
	if err == nil && price.GreaterThan(decimal.Zero) {
		s.remember(ctx, symbol, price)
		return price, nil
	}

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"component": "CachedSource",
			"symbol":    symbol,
		}).WithError(err).Warn("Price source failed, using last-known value")
	}

	s.mu.RLock()
	cached, ok := s.last[symbol]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if s.quotes != nil {
		quote, qerr := s.quotes.FindBySymbol(ctx, symbol)
		if qerr == nil && quote != nil {
			s.mu.Lock()
			s.last[symbol] = quote.Price
			s.mu.Unlock()
			return quote.Price, nil
		}
	}

	return decimal.Zero, ErrPriceUnavailable
}

// LastKnown returns the cached price for a symbol without touching the
// upstream source.
func (s *CachedSource) LastKnown(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	s.mu.RLock()
	cached, ok := s.last[symbol]
	s.mu.RUnlock()
	if ok {
		return cached, true
	}

	if s.quotes != nil {
		quote, err := s.quotes.FindBySymbol(ctx, symbol)
		if err == nil && quote != nil {
			return quote.Price, true
		}
	}

	return decimal.Zero, false
}

func (s *CachedSource) remember(ctx context.Context, symbol string, price decimal.Decimal) {
	s.mu.Lock()
	s.last[symbol] = price
	s.mu.Unlock()

	if s.quotes != nil {
		if err := s.quotes.Upsert(ctx, symbol, price, s.now()); err != nil {
			logger.WithError(err).Warn("Failed to persist quote")
		}
	}
}

// NewSourceFromConfig builds the configured upstream source.
func NewSourceFromConfig(config Config) Source {
	switch config.Source {
	case "binance":
		return NewBinanceSource()
	default:
		return NewRESTSource(config.BaseURL, config.QuotePath, config.HTTPTimeout)
	}
}
