package financials

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/newthinker/intrinsic/internal/core"
)

// RandomSource yields reals in [0,1)
type RandomSource interface {
	Float64() float64
}

// SourceFactory creates a RandomSource for a seed
type SourceFactory func(seed uint64) RandomSource

// PCGSource is the default SourceFactory.
func PCGSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed))
}

// Seed sums the character codes of a stock code.
func Seed(code string) uint64 {
	var sum uint64
	for _, r := range code {
		sum += uint64(r)
	}
	return sum
}

// Generator produces deterministic placeholder financials for a code. The
// same code always yields the same records for a given calendar year.
type Generator struct {
	source SourceFactory
	now    func() time.Time
}

// NewGenerator creates a generator. Nil arguments select PCGSource and time.Now.
func NewGenerator(source SourceFactory, now func() time.Time) *Generator {
	if source == nil {
		source = PCGSource
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{source: source, now: now}
}

// Generate returns three years of figures, most recent first.
func (g *Generator) Generate(code string) []core.FinancialYearRecord {
	rnd := g.source(Seed(code))
	uniform := func(lo, hi float64) float64 {
		return lo + (hi-lo)*rnd.Float64()
	}

	baseNetIncome := uniform(5e8, 1e10)
	baseRevenue := baseNetIncome * uniform(3, 8)
	latest := g.now().Year() - 1

	records := make([]core.FinancialYearRecord, 0, core.MaxFinancialYears)
	for i := 0; i < core.MaxFinancialYears; i++ {
		growth := math.Pow(uniform(0.95, 1.15), float64(core.MaxFinancialYears-1-i))

		netIncome := baseNetIncome * growth
		interest := netIncome * uniform(0.02, 0.15)
		depreciation := netIncome * uniform(0.1, 0.3)
		capex := netIncome * uniform(0.15, 0.4)

		totalAssets := baseRevenue * uniform(1.5, 3)
		currentAssets := totalAssets * uniform(0.3, 0.6)
		currentLiabilities := currentAssets * uniform(0.6, 0.9)

		records = append(records, core.FinancialYearRecord{
			PeriodLabel:        yearEndLabel(latest - i),
			NetIncome:          round2(netIncome),
			InterestExpense:    round2(interest),
			Depreciation:       round2(depreciation),
			CapitalExpenditure: round2(capex),
			CurrentAssets:      round2(currentAssets),
			CurrentLiabilities: round2(currentLiabilities),
		})
	}
	return records
}

// Tier exposes the generator as the last fallback. It never comes back empty.
func (g *Generator) Tier() TierFunc {
	return func(_ context.Context, code string) (TierResult, error) {
		return Found(core.NewEstimatedSeries(code, "synthetic", CaveatSynthetic, g.Generate(code))), nil
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
