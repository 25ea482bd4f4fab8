package valuation

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/intrinsic/internal/core"
)

// Evaluation is the engine's output for one series.
type Evaluation struct {
	FCFHistory      []float64
	AverageFCF      float64
	EnterpriseValue float64
	Projection      *Projection
}

// Engine turns a financial series into an enterprise value.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an engine. A nil logger disables logging.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger.Named("valuation")}
}

// Evaluate computes per-year FCF in series order, averages it and discounts the
// average. It fails with ErrNoFinancialData on an empty series and ErrValuation
// when the DCF degenerates.
func (e *Engine) Evaluate(series core.FinancialSeries, p core.ValuationParameters) (*Evaluation, error) {
	if series.Len() == 0 {
		return nil, core.WrapError(core.ErrNoFinancialData, fmt.Errorf("empty series for %s", series.Code))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.DiscountRate <= 0 || p.DiscountRate >= 1 {
		e.logger.Warn("discount rate outside (0,1)",
			zap.String("code", series.Code),
			zap.Float64("discount_rate", p.DiscountRate),
		)
	}

	history := make([]float64, 0, series.Len())
	sum := 0.0
	for _, r := range series.Records {
		fcf := YearFCF(r)
		history = append(history, fcf)
		sum += fcf
	}
	avg := sum / float64(len(history))

	proj, err := Project(avg, p)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("evaluated",
		zap.String("code", series.Code),
		zap.Int("years", len(history)),
		zap.Float64("avg_fcf", avg),
		zap.Float64("enterprise_value", proj.EnterpriseValue),
	)

	return &Evaluation{
		FCFHistory:      history,
		AverageFCF:      avg,
		EnterpriseValue: proj.EnterpriseValue,
		Projection:      proj,
	}, nil
}
