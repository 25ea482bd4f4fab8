// Package market compares intrinsic value with the live market price.
package market

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/newthinker/intrinsic/internal/collector"
	"github.com/newthinker/intrinsic/internal/core"
	"github.com/newthinker/intrinsic/internal/metrics"
)

// DefaultPlaceholderPrice stands in for a market price no source could provide
const DefaultPlaceholderPrice = 10.0

// Comparison is the per-share view of an enterprise value
type Comparison struct {
	PricePerShare  float64
	MarketPrice    float64
	PriceEstimated bool
	PriceSource    string
	ValuationRatio float64
}

// Comparator prices a valuation against the first quote source with a price.
type Comparator struct {
	sources     []collector.QuoteSource
	placeholder float64
	logger      *zap.Logger
	metrics     *metrics.Registry
}

// NewComparator creates a comparator. Sources are tried in order. A non-positive
// placeholder selects DefaultPlaceholderPrice.
func NewComparator(sources []collector.QuoteSource, placeholder float64, logger *zap.Logger, reg *metrics.Registry) *Comparator {
	if placeholder <= 0 {
		placeholder = DefaultPlaceholderPrice
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparator{
		sources:     sources,
		placeholder: placeholder,
		logger:      logger.Named("market"),
		metrics:     reg,
	}
}

// Compare divides ev by shares and relates the result to the market price.
// A failed quote lookup degrades to the placeholder price; it only returns an
// error when ctx is done.
func (c *Comparator) Compare(ctx context.Context, code string, ev, shares float64) (Comparison, error) {
	var cmp Comparison
	if shares > 0 {
		cmp.PricePerShare = ev / shares
	}

	price, source, err := c.marketPrice(ctx, code)
	if err != nil {
		return Comparison{}, err
	}
	if source == "" {
		cmp.MarketPrice = c.placeholder
		cmp.PriceEstimated = true
		cmp.PriceSource = "placeholder"
	} else {
		cmp.MarketPrice = price
		cmp.PriceSource = source
	}

	if cmp.MarketPrice != 0 {
		cmp.ValuationRatio = cmp.PricePerShare / cmp.MarketPrice
	}
	return cmp, nil
}

// marketPrice returns an empty source when nothing usable was found.
func (c *Comparator) marketPrice(ctx context.Context, code string) (float64, string, error) {
	reason := "not_listed"
	for _, s := range c.sources {
		q, err := s.Quote(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return 0, "", ctx.Err()
			}
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			reason = "unavailable"
			c.metrics.RecordProviderFailure(s.Name(), "quote")
			c.logger.Warn("quote source failed",
				zap.String("code", code),
				zap.String("source", s.Name()),
				zap.Error(err),
			)
			continue
		}
		if q == nil || q.Price <= 0 {
			continue
		}
		return q.Price, s.Name(), nil
	}

	c.metrics.RecordQuoteFallback(reason)
	c.logger.Warn("no market price, using placeholder",
		zap.String("code", code),
		zap.Float64("placeholder", c.placeholder),
		zap.String("reason", reason),
	)
	return 0, "", nil
}
