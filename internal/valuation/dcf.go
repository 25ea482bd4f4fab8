package valuation

import (
	"fmt"
	"math"

	"github.com/newthinker/intrinsic/internal/core"
)

// Flow is one projected year
type Flow struct {
	Year  int     `json:"year"`
	Stage int     `json:"stage"`
	FCF   float64 `json:"fcf"`
	PV    float64 `json:"pv"`
}

// Projection is the full DCF breakdown
type Projection struct {
	Flows           []Flow  `json:"flows"`
	TerminalValue   float64 `json:"terminal_value"`
	TerminalPV      float64 `json:"terminal_pv"`
	EnterpriseValue float64 `json:"enterprise_value"`
}

// DCF discounts a base free cash flow through three growth stages and returns
// the enterprise value.
func DCF(fcf float64, p core.ValuationParameters) (float64, error) {
	proj, err := Project(fcf, p)
	if err != nil {
		return 0, err
	}
	return proj.EnterpriseValue, nil
}

// Project runs the three-stage DCF and keeps every intermediate figure.
//
// Each stage compounds the previous year's FCF by its growth rate and discounts
// year t by (1+r)^t. With Stage3.Years == 0 a Gordon terminal value is taken at
// the end of stage 2 and discounted by (1+r)^(stage1+stage2), one year short of
// the terminal year. Existing reports depend on that exponent.
func Project(fcf float64, p core.ValuationParameters) (*Projection, error) {
	r := p.DiscountRate
	proj := &Projection{}
	current := fcf
	year := 0

	run := func(stage int, s core.Stage) {
		for i := 0; i < s.Years; i++ {
			year++
			current *= 1 + s.Growth
			pv := current / math.Pow(1+r, float64(year))
			proj.Flows = append(proj.Flows, Flow{Year: year, Stage: stage, FCF: current, PV: pv})
			proj.EnterpriseValue += pv
		}
	}

	run(1, p.Stage1)
	run(2, p.Stage2)

	if p.Perpetual() {
		g := p.Stage3.Growth
		if r == g {
			return nil, core.WrapError(core.ErrValuation,
				fmt.Errorf("discount rate equals terminal growth rate (%g)", r))
		}
		proj.TerminalValue = current * (1 + g) / (r - g)
		proj.TerminalPV = proj.TerminalValue / math.Pow(1+r, float64(p.Stage1.Years+p.Stage2.Years))
		proj.EnterpriseValue += proj.TerminalPV
	} else {
		run(3, p.Stage3)
	}

	if math.IsNaN(proj.EnterpriseValue) || math.IsInf(proj.EnterpriseValue, 0) {
		return nil, core.WrapError(core.ErrValuation,
			fmt.Errorf("enterprise value is not finite for discount rate %g", r))
	}
	return proj, nil
}
