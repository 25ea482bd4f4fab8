package valuation

import "github.com/newthinker/intrinsic/internal/core"

// WorkingCapitalRatio is the share of a year's working capital booked as its
// working-capital change. It approximates a period-over-period delta and is
// kept at 10% so results stay comparable with earlier valuations.
const WorkingCapitalRatio = 0.10

// FCF derives free cash flow from net income:
// net income + interest + amortization + depreciation - change in working capital - capex.
func FCF(r core.FinancialYearRecord, changeWC float64) float64 {
	return r.NetIncome + r.InterestExpense + r.Amortization + r.Depreciation - changeWC - r.CapitalExpenditure
}

// ChangeInWorkingCapital returns the working-capital proxy for one year.
func ChangeInWorkingCapital(r core.FinancialYearRecord) float64 {
	return r.WorkingCapital() * WorkingCapitalRatio
}

// YearFCF is FCF with the working-capital proxy applied.
func YearFCF(r core.FinancialYearRecord) float64 {
	return FCF(r, ChangeInWorkingCapital(r))
}
