package financials

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/intrinsic/internal/collector"
	"github.com/newthinker/intrinsic/internal/core"
	"github.com/newthinker/intrinsic/internal/metrics"
)

// Sources are the collaborators behind the default tier chain. A nil source
// drops its tier.
type Sources struct {
	Store      collector.RecordStore
	Statements collector.StatementSource
	BasicInfo  collector.BasicInfoSource
	Generator  *Generator
	Now        func() time.Time
}

// Aggregator walks its tiers in order and returns the first non-empty series.
// Series from different tiers are never merged.
type Aggregator struct {
	tiers   []Tier
	logger  *zap.Logger
	metrics *metrics.Registry
}

// New builds the store -> statements -> synthetic chain.
func New(src Sources, logger *zap.Logger, reg *metrics.Registry) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("financials")

	var tiers []Tier
	if src.Store != nil {
		tiers = append(tiers, Tier{Name: "store", Fetch: StoreTier(src.Store)})
	}
	if src.Statements != nil {
		tiers = append(tiers, Tier{Name: "statements", Fetch: StatementTier(src.Statements, src.BasicInfo, src.Now, logger)})
	}
	gen := src.Generator
	if gen == nil {
		gen = NewGenerator(nil, src.Now)
	}
	tiers = append(tiers, Tier{Name: "synthetic", Fetch: gen.Tier()})

	return NewAggregator(tiers, logger, reg)
}

// NewAggregator creates an aggregator over an explicit tier chain.
func NewAggregator(tiers []Tier, logger *zap.Logger, reg *metrics.Registry) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{tiers: tiers, logger: logger, metrics: reg}
}

// Tiers returns the tier names in evaluation order
func (a *Aggregator) Tiers() []string {
	names := make([]string, len(a.tiers))
	for i, t := range a.tiers {
		names[i] = t.Name
	}
	return names
}

// Fetch returns the first series any tier produces for code. It fails with
// ErrNoFinancialData only when every tier comes back empty.
func (a *Aggregator) Fetch(ctx context.Context, code string) (core.FinancialSeries, error) {
	var lastErr error
	for _, t := range a.tiers {
		if err := ctx.Err(); err != nil {
			return core.FinancialSeries{}, err
		}

		res, err := t.Fetch(ctx, code)
		switch {
		case res.Found:
			a.metrics.RecordTier(t.Name, "found")
			a.logger.Info("financial series resolved",
				zap.String("code", code),
				zap.String("tier", t.Name),
				zap.String("source", res.Series.Source),
				zap.Int("years", res.Series.Len()),
				zap.String("provenance", string(res.Series.Provenance)),
			)
			return res.Series, nil
		case err != nil:
			lastErr = err
			a.metrics.RecordTier(t.Name, "error")
			a.logger.Warn("tier failed, falling through",
				zap.String("code", code),
				zap.String("tier", t.Name),
				zap.Error(err),
			)
		default:
			a.metrics.RecordTier(t.Name, "empty")
			a.logger.Debug("tier empty",
				zap.String("code", code),
				zap.String("tier", t.Name),
			)
		}
	}

	if lastErr != nil {
		return core.FinancialSeries{}, core.WrapError(core.ErrNoFinancialData, lastErr)
	}
	return core.FinancialSeries{}, core.WrapError(core.ErrNoFinancialData, fmt.Errorf("no tier produced data for %s", code))
}
