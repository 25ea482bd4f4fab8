package financials

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/intrinsic/internal/collector"
	"github.com/newthinker/intrinsic/internal/core"
)

// Caveats attached to estimated series
const (
	CaveatSimplified = "financial statements unavailable; estimated figures used, for reference only"
	CaveatSynthetic  = "financial data for this stock is simulated, for reference only"
)

// Placeholder base values and yearly growth multipliers of the simplified sub-tier.
var simplifiedBase = core.FinancialYearRecord{
	NetIncome:          1e9,
	InterestExpense:    5e7,
	Depreciation:       2e8,
	CapitalExpenditure: 3e8,
	CurrentAssets:      5e9,
	CurrentLiabilities: 3e9,
}

var simplifiedGrowth = core.FinancialYearRecord{
	NetIncome:          1.10,
	InterestExpense:    1.05,
	Depreciation:       1.03,
	CapitalExpenditure: 1.08,
	CurrentAssets:      1.05,
	CurrentLiabilities: 1.05,
}

// StatementTier builds records from live cash-flow, balance-sheet and income
// statements. If any statement is unavailable, or no period lines up across
// the three, it falls back to the simplified estimate, which needs basic info
// to confirm the code. info may be nil, in which case that fallback is skipped.
func StatementTier(src collector.StatementSource, info collector.BasicInfoSource, now func() time.Time, logger *zap.Logger) TierFunc {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(ctx context.Context, code string) (TierResult, error) {
		records, err := liveRecords(ctx, src, code)
		if err == nil && len(records) > 0 {
			return Found(core.NewStoredSeries(code, "statements", records)), nil
		}
		if err == nil {
			err = errors.New("no aligned statement periods")
		}
		logger.Debug("live statements unusable, trying simplified estimate",
			zap.String("code", code), zap.Error(err))

		if info == nil {
			return Empty, err
		}
		basic, infoErr := info.BasicInfo(ctx, code)
		if infoErr != nil {
			return Empty, errors.Join(err, fmt.Errorf("basic info: %w", infoErr))
		}
		if len(basic) == 0 {
			return Empty, errors.Join(err, errors.New("basic info empty"))
		}
		return Found(core.NewEstimatedSeries(code, "simplified", CaveatSimplified, simplifiedRecords(now()))), nil
	}
}

func liveRecords(ctx context.Context, src collector.StatementSource, code string) ([]core.FinancialYearRecord, error) {
	cf, err := src.CashFlow(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("cash flow: %w", err)
	}
	bs, err := src.BalanceSheet(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("balance sheet: %w", err)
	}
	is, err := src.IncomeStatement(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("income statement: %w", err)
	}
	if len(cf) == 0 || len(bs) == 0 || len(is) == 0 {
		return nil, fmt.Errorf("statement missing (cash flow %d, balance sheet %d, income %d rows)",
			len(cf), len(bs), len(is))
	}

	var records []core.FinancialYearRecord
	for _, p := range alignPeriods(cf, bs, is) {
		if len(records) == core.MaxFinancialYears {
			break
		}
		rec, ok := extract(p)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

type period struct {
	label string
	rows  map[Statement]collector.Row
}

// alignPeriods pairs rows by report date, walking cash-flow rows in order.
// A statement without any labels is paired by position instead.
func alignPeriods(cf, bs, is []collector.Row) []period {
	bsByLabel := indexByLabel(bs)
	isByLabel := indexByLabel(is)

	var out []period
	for i, c := range cf {
		label := PeriodLabel(c)
		b, ok := pick(bs, bsByLabel, label, i)
		if !ok {
			continue
		}
		in, ok := pick(is, isByLabel, label, i)
		if !ok {
			continue
		}
		out = append(out, period{
			label: label,
			rows:  map[Statement]collector.Row{CashFlow: c, BalanceSheet: b, IncomeStatement: in},
		})
	}
	return out
}

func indexByLabel(rows []collector.Row) map[string]collector.Row {
	m := make(map[string]collector.Row, len(rows))
	for _, r := range rows {
		if l := PeriodLabel(r); l != "" {
			if _, dup := m[l]; !dup {
				m[l] = r
			}
		}
	}
	return m
}

func pick(rows []collector.Row, byLabel map[string]collector.Row, label string, i int) (collector.Row, bool) {
	if label != "" && len(byLabel) > 0 {
		r, ok := byLabel[label]
		return r, ok
	}
	if i < len(rows) {
		return rows[i], true
	}
	return nil, false
}

// extract applies FieldAliases to one aligned period. Rows without a single
// recognised figure are rejected.
func extract(p period) (core.FinancialYearRecord, bool) {
	rec := core.FinancialYearRecord{PeriodLabel: p.label}
	matched := 0
	for _, fa := range FieldAliases {
		v, ok := Lookup(p.rows[fa.Statement], fa.Aliases)
		if !ok {
			continue
		}
		matched++
		switch fa.Field {
		case FieldNetIncome:
			rec.NetIncome = v
		case FieldInterestExpense:
			rec.InterestExpense = v
		case FieldDepreciation:
			rec.Depreciation = v
		case FieldAmortization:
			rec.Amortization = v
		case FieldCapex:
			rec.CapitalExpenditure = math.Abs(v)
		case FieldCurrentAssets:
			rec.CurrentAssets = v
		case FieldCurrentLiabilities:
			rec.CurrentLiabilities = v
		}
	}
	if _, ok := Lookup(p.rows[CashFlow], []string{CombinedDepreciationAlias}); ok {
		rec.Amortization = 0
	}
	return rec, matched > 0
}

func simplifiedRecords(now time.Time) []core.FinancialYearRecord {
	latest := now.Year() - 1
	records := make([]core.FinancialYearRecord, 0, core.MaxFinancialYears)
	for i := 0; i < core.MaxFinancialYears; i++ {
		exp := float64(core.MaxFinancialYears - 1 - i)
		g := func(base, mult float64) float64 { return base * math.Pow(mult, exp) }
		records = append(records, core.FinancialYearRecord{
			PeriodLabel:        yearEndLabel(latest - i),
			NetIncome:          g(simplifiedBase.NetIncome, simplifiedGrowth.NetIncome),
			InterestExpense:    g(simplifiedBase.InterestExpense, simplifiedGrowth.InterestExpense),
			Depreciation:       g(simplifiedBase.Depreciation, simplifiedGrowth.Depreciation),
			CapitalExpenditure: g(simplifiedBase.CapitalExpenditure, simplifiedGrowth.CapitalExpenditure),
			CurrentAssets:      g(simplifiedBase.CurrentAssets, simplifiedGrowth.CurrentAssets),
			CurrentLiabilities: g(simplifiedBase.CurrentLiabilities, simplifiedGrowth.CurrentLiabilities),
		})
	}
	return records
}

func yearEndLabel(year int) string {
	return strconv.Itoa(year) + "-12-31"
}
