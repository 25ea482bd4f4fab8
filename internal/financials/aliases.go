package financials

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/newthinker/intrinsic/internal/collector"
)

// Statement names one of the three yearly statements
type Statement string

const (
	CashFlow        Statement = "cash_flow"
	BalanceSheet    Statement = "balance_sheet"
	IncomeStatement Statement = "income_statement"
)

// Field is a logical figure of a FinancialYearRecord
type Field string

const (
	FieldNetIncome          Field = "net_income"
	FieldInterestExpense    Field = "interest_expense"
	FieldDepreciation       Field = "depreciation"
	FieldAmortization       Field = "amortization"
	FieldCapex              Field = "capex"
	FieldCurrentAssets      Field = "current_assets"
	FieldCurrentLiabilities Field = "current_liabilities"
)

// FieldAlias maps a logical field to the raw column names seen for it, in
// lookup order. The first alias present with a numeric value wins.
type FieldAlias struct {
	Field     Field
	Statement Statement
	Aliases   []string
}

// FieldAliases is consulted for every statement row. Extend it when a
// provider renames a column.
var FieldAliases = []FieldAlias{
	{
		Field:     FieldNetIncome,
		Statement: IncomeStatement,
		Aliases:   []string{"净利润", "net_income", "NETPROFIT", "PARENT_NETPROFIT"},
	},
	{
		Field:     FieldInterestExpense,
		Statement: IncomeStatement,
		Aliases:   []string{"利息支出", "interest_expense", "财务费用", "FE_INTEREST_EXPENSE", "INTEREST_EXPENSE", "FINANCE_EXPENSE"},
	},
	{
		Field:     FieldDepreciation,
		Statement: CashFlow,
		Aliases:   []string{CombinedDepreciationAlias, "depreciation", "折旧费用", "FA_IR_DEPR"},
	},
	{
		Field:     FieldAmortization,
		Statement: CashFlow,
		Aliases:   []string{"无形资产摊销", "amortization", "摊销费用", "IA_AMORTIZE", "LPE_AMORTIZE"},
	},
	{
		Field:     FieldCapex,
		Statement: CashFlow,
		Aliases: []string{
			"购建固定资产、无形资产和其他长期资产支付的现金",
			"购建固定资产支付的现金",
			"capex",
			"资本支出",
			"CONSTRUCT_LONG_ASSET",
		},
	},
	{
		Field:     FieldCurrentAssets,
		Statement: BalanceSheet,
		Aliases:   []string{"流动资产合计", "current_assets", "流动资产总计", "TOTAL_CURRENT_ASSETS"},
	},
	{
		Field:     FieldCurrentLiabilities,
		Statement: BalanceSheet,
		Aliases:   []string{"流动负债合计", "current_liabilities", "流动负债总计", "TOTAL_CURRENT_LIAB"},
	},
}

// CombinedDepreciationAlias already includes amortization. A row that
// reports it leaves FieldAmortization at zero.
const CombinedDepreciationAlias = "折旧与摊销"

// PeriodAliases name the report-date column
var PeriodAliases = []string{"REPORT_DATE", "报告期", "report_date"}

// Lookup returns the first alias in row holding a usable number.
func Lookup(row collector.Row, aliases []string) (float64, bool) {
	for _, key := range aliases {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

// PeriodLabel returns the row's report date as YYYY-MM-DD, or "".
func PeriodLabel(row collector.Row) string {
	for _, key := range PeriodAliases {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(toString(v))
		if s == "" {
			continue
		}
		if len(s) > 10 {
			s = s[:10]
		}
		return s
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return 0, false
		}
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", ""), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
