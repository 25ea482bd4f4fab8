package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/intrinsic/internal/core"
	"github.com/newthinker/intrinsic/internal/financials"
	"github.com/newthinker/intrinsic/internal/market"
	"github.com/newthinker/intrinsic/internal/metrics"
	"github.com/newthinker/intrinsic/internal/resolver"
	"github.com/newthinker/intrinsic/internal/shares"
	"github.com/newthinker/intrinsic/internal/storage/archive"
	"github.com/newthinker/intrinsic/internal/valuation"
)

// Components are the pipeline stages. Reports may be nil.
type Components struct {
	Resolver   *resolver.Resolver
	Financials *financials.Aggregator
	Engine     *valuation.Engine
	Shares     *shares.Lookup
	Comparator *market.Comparator
	Market     *market.View
	Reports    *archive.Reports
}

// ValuationRequest asks for a DCF valuation of one stock code
type ValuationRequest struct {
	Code       string
	Parameters core.ValuationParameters
}

// Valuation is a finished valuation with its working
type Valuation struct {
	Result     core.ValuationResult
	Projection *valuation.Projection
	ReportID   string
}

// App is the main application orchestrator
type App struct {
	c        Components
	defaults core.ValuationParameters
	logger   *zap.Logger
	metrics  *metrics.Registry
	now      func() time.Time
	closers  []func()
}

// New creates a new App instance
func New(c Components, defaults core.ValuationParameters, logger *zap.Logger, reg *metrics.Registry) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		c:        c,
		defaults: defaults,
		logger:   logger.Named("app"),
		metrics:  reg,
		now:      time.Now,
	}
}

// Defaults returns the parameters used for omitted request fields
func (a *App) Defaults() core.ValuationParameters {
	return a.defaults
}

// Close releases resources opened by Build
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Search resolves free-text input to a stock identity.
func (a *App) Search(ctx context.Context, input string) (core.StockIdentity, error) {
	return a.c.Resolver.Resolve(ctx, input)
}

// Valuate runs the full pipeline: financial series, DCF, share count, market
// comparison. Parameters are validated before any external call.
func (a *App) Valuate(ctx context.Context, req ValuationRequest) (*Valuation, error) {
	start := a.now()

	code, err := requestCode(req.Code)
	if err != nil {
		return nil, err
	}
	if err := req.Parameters.Validate(); err != nil {
		return nil, err
	}

	v, err := a.valuate(ctx, code, req.Parameters)
	elapsed := a.now().Sub(start).Seconds()
	if err != nil {
		a.metrics.RecordValuation("none", "error", elapsed)
		a.logger.Warn("valuation failed", zap.String("code", code), zap.Error(err))
		return nil, err
	}
	a.metrics.RecordValuation(string(v.Result.Provenance), "ok", elapsed)

	if a.c.Reports != nil {
		id, err := a.c.Reports.Save(ctx, "", v.Result)
		if err != nil {
			a.metrics.RecordArchive("error")
			a.logger.Warn("archiving report failed", zap.String("code", code), zap.Error(err))
		} else {
			a.metrics.RecordArchive("ok")
			v.ReportID = id
		}
	}

	a.logger.Info("valuation complete",
		zap.String("code", code),
		zap.String("provenance", string(v.Result.Provenance)),
		zap.Float64("enterprise_value", v.Result.EnterpriseValue),
		zap.Float64("price_per_share", v.Result.PricePerShare),
		zap.Float64("valuation_ratio", v.Result.ValuationRatio),
		zap.Bool("market_price_estimated", v.Result.MarketPriceEstimated),
	)
	return v, nil
}

func (a *App) valuate(ctx context.Context, code string, params core.ValuationParameters) (*Valuation, error) {
	series, err := a.c.Financials.Fetch(ctx, code)
	if err != nil {
		return nil, err
	}

	ev, err := a.c.Engine.Evaluate(series, params)
	if err != nil {
		return nil, err
	}

	var (
		totalShares float64
		source      shares.Source
	)
	if n := series.Records[0].TotalShares; n > 0 {
		totalShares, source = a.c.Shares.Known(n)
	} else {
		totalShares, source = a.c.Shares.Resolve(ctx, code)
	}

	cmp, err := a.c.Comparator.Compare(ctx, code, ev.EnterpriseValue, totalShares)
	if err != nil {
		return nil, err
	}

	return &Valuation{
		Result: core.ValuationResult{
			StockCode:            code,
			AverageFCF:           ev.AverageFCF,
			EnterpriseValue:      ev.EnterpriseValue,
			TotalShares:          totalShares,
			SharesSource:         string(source),
			PricePerShare:        cmp.PricePerShare,
			MarketPrice:          cmp.MarketPrice,
			MarketPriceEstimated: cmp.PriceEstimated,
			ValuationRatio:       cmp.ValuationRatio,
			FCFHistory:           ev.FCFHistory,
			FinancialYears:       series.Len(),
			Parameters:           params,
			Provenance:           series.Provenance,
			Caveat:               series.Caveat,
			ValuedAt:             a.now().UTC(),
		},
		Projection: ev.Projection,
	}, nil
}

// MarketData returns the current quote for a stock code.
func (a *App) MarketData(ctx context.Context, code string) (*core.Quote, error) {
	code, err := requestCode(code)
	if err != nil {
		return nil, err
	}
	return a.c.Market.MarketData(ctx, code)
}

// History lists archived valuations for a code, newest first. Without an
// archive it is always empty.
func (a *App) History(ctx context.Context, code string) ([]archive.Report, error) {
	code, err := requestCode(code)
	if err != nil {
		return nil, err
	}
	if a.c.Reports == nil {
		return []archive.Report{}, nil
	}
	return a.c.Reports.List(ctx, code)
}

func requestCode(raw string) (string, error) {
	code, ok := resolver.NormalizeCode(strings.TrimSpace(raw))
	if !ok {
		return "", core.WrapError(core.ErrInvalidParams, fmt.Errorf("stock_code must be numeric, got %q", raw))
	}
	return code, nil
}
