package market

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/newthinker/intrinsic/internal/collector"
	"github.com/newthinker/intrinsic/internal/core"
)

// View serves the market-data endpoint: the first quote any source has for
// a code, with PE/PB backfilled from basic info when the quote lacks them.
type View struct {
	sources []collector.QuoteSource
	info    collector.BasicInfoSource
	logger  *zap.Logger
}

// NewView creates a View. info may be nil.
func NewView(sources []collector.QuoteSource, info collector.BasicInfoSource, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{sources: sources, info: info, logger: logger.Named("market")}
}

// MarketData returns the current quote for code. It fails with ErrNotFound
// when every source answered without the code, and ErrProviderUnavailable
// when a source failed and none had it.
func (v *View) MarketData(ctx context.Context, code string) (*core.Quote, error) {
	var lastErr error
	for _, s := range v.sources {
		q, err := s.Quote(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !errors.Is(err, core.ErrNotFound) {
				lastErr = err
				v.logger.Warn("quote source failed",
					zap.String("code", code),
					zap.String("source", s.Name()),
					zap.Error(err),
				)
			}
			continue
		}
		if q == nil {
			continue
		}
		v.backfillRatios(ctx, q)
		return q, nil
	}

	if lastErr != nil {
		return nil, core.WrapError(core.ErrProviderUnavailable, lastErr)
	}
	return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("no market data for %s", code))
}

func (v *View) backfillRatios(ctx context.Context, q *core.Quote) {
	if v.info == nil || (q.PE != 0 && q.PB != 0) {
		return
	}
	info, err := v.info.BasicInfo(ctx, q.Code)
	if err != nil {
		v.logger.Debug("basic info unavailable for ratios", zap.String("code", q.Code), zap.Error(err))
		return
	}
	if q.PE == 0 {
		q.PE = parseRatio(info[collector.InfoPEDynamic])
	}
	if q.PB == 0 {
		q.PB = parseRatio(info[collector.InfoPB])
	}
}

func parseRatio(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
