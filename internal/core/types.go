package core

import (
	"fmt"
	"strings"
	"time"
)

// CodeWidth is the fixed width of an A-share stock code.
const CodeWidth = 6

// MaxFinancialYears bounds every financial series.
const MaxFinancialYears = 3

// Exchange identifies the A-share exchange a code trades on
type Exchange string

const (
	ExchangeSH Exchange = "SH"
	ExchangeSZ Exchange = "SZ"
	ExchangeBJ Exchange = "BJ"
)

// ExchangeOf derives the exchange from a 6-digit code prefix.
// 6xxxxx/9xxxxx trade in Shanghai, 4xxxxx/8xxxxx in Beijing, the rest in Shenzhen.
func ExchangeOf(code string) Exchange {
	if code == "" {
		return ExchangeSZ
	}
	switch code[0] {
	case '6', '9':
		return ExchangeSH
	case '4', '8':
		return ExchangeBJ
	default:
		return ExchangeSZ
	}
}

// StockIdentity is a canonical code and display name pair
type StockIdentity struct {
	Code string `json:"stock_code"`
	Name string `json:"stock_name"`
}

// FinancialYearRecord holds one fiscal year's normalized figures in currency units.
// CapitalExpenditure is an outflow magnitude and is never negative.
// TotalShares of 0 means the share count still has to be looked up.
type FinancialYearRecord struct {
	PeriodLabel        string  `json:"year"`
	NetIncome          float64 `json:"net_income"`
	InterestExpense    float64 `json:"interest_expense"`
	Depreciation       float64 `json:"depreciation"`
	Amortization       float64 `json:"amortization"`
	CapitalExpenditure float64 `json:"capex"`
	CurrentAssets      float64 `json:"current_assets"`
	CurrentLiabilities float64 `json:"current_liabilities"`
	TotalShares        int64   `json:"total_shares"`
}

// WorkingCapital returns current assets minus current liabilities.
func (r FinancialYearRecord) WorkingCapital() float64 {
	return r.CurrentAssets - r.CurrentLiabilities
}

// Provenance tags where a financial series came from
type Provenance string

const (
	ProvenanceStored    Provenance = "stored"
	ProvenanceEstimated Provenance = "estimated"
)

// FinancialSeries is an ordered, most-recent-first run of fiscal years.
type FinancialSeries struct {
	Code       string                `json:"stock_code"`
	Records    []FinancialYearRecord `json:"records"`
	Provenance Provenance            `json:"provenance"`
	Caveat     string                `json:"caveat,omitempty"`
	Source     string                `json:"source"`
}

// NewStoredSeries builds a series backed by real data.
func NewStoredSeries(code, source string, records []FinancialYearRecord) FinancialSeries {
	return FinancialSeries{
		Code:       code,
		Records:    capRecords(records),
		Provenance: ProvenanceStored,
		Source:     source,
	}
}

// NewEstimatedSeries builds a series of estimated figures. The caveat must be
// surfaced to whoever consumes the series.
func NewEstimatedSeries(code, source, caveat string, records []FinancialYearRecord) FinancialSeries {
	return FinancialSeries{
		Code:       code,
		Records:    capRecords(records),
		Provenance: ProvenanceEstimated,
		Caveat:     caveat,
		Source:     source,
	}
}

func capRecords(records []FinancialYearRecord) []FinancialYearRecord {
	if len(records) > MaxFinancialYears {
		records = records[:MaxFinancialYears]
	}
	out := make([]FinancialYearRecord, len(records))
	copy(out, records)
	return out
}

// Len returns the number of years in the series
func (s FinancialSeries) Len() int { return len(s.Records) }

// IsEstimated reports whether the figures are estimates rather than sourced data
func (s FinancialSeries) IsEstimated() bool { return s.Provenance == ProvenanceEstimated }

// Stage is one growth stage of a DCF projection
type Stage struct {
	Years  int     `json:"years"`
	Growth float64 `json:"growth_rate"`
}

// ValuationParameters configures a three-stage DCF. A Stage3 with zero years
// means perpetual growth from the end of stage 2.
type ValuationParameters struct {
	DiscountRate float64 `json:"discount_rate"`
	Stage1       Stage   `json:"stage1"`
	Stage2       Stage   `json:"stage2"`
	Stage3       Stage   `json:"stage3"`
}

// DefaultValuationParameters returns the documented request defaults.
func DefaultValuationParameters() ValuationParameters {
	return ValuationParameters{
		DiscountRate: 0.10,
		Stage1:       Stage{Years: 5, Growth: 0.10},
		Stage2:       Stage{Years: 5, Growth: 0.05},
		Stage3:       Stage{Years: 0, Growth: 0.02},
	}
}

// Perpetual reports whether stage 3 is a terminal perpetuity.
func (p ValuationParameters) Perpetual() bool {
	return p.Stage3.Years == 0
}

// MaxStageYears bounds each growth stage. Every projected year is
// materialised, so the horizon must stay finite.
const MaxStageYears = 200

// Validate rejects structurally impossible parameters. The discount rate range
// is deliberately not enforced here.
func (p ValuationParameters) Validate() error {
	var problems []string
	for i, s := range []Stage{p.Stage1, p.Stage2, p.Stage3} {
		switch {
		case s.Years < 0:
			problems = append(problems, fmt.Sprintf("stage%d_years must be >= 0, got %d", i+1, s.Years))
		case s.Years > MaxStageYears:
			problems = append(problems, fmt.Sprintf("stage%d_years must be <= %d, got %d", i+1, MaxStageYears, s.Years))
		}
	}
	if len(problems) > 0 {
		return WrapError(ErrInvalidParams, fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}

// Quote is a market snapshot row for one stock
type Quote struct {
	Code          string    `json:"stock_code"`
	Name          string    `json:"stock_name,omitempty"`
	Price         float64   `json:"current_price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        float64   `json:"volume"`
	Turnover      float64   `json:"turnover"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PrevClose     float64   `json:"yesterday_close"`
	PE            float64   `json:"pe_ratio"`
	PB            float64   `json:"pb_ratio"`
	Time          time.Time `json:"time"`
	Source        string    `json:"source"`
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Code != "" && q.Price > 0
}

// ValuationResult is the immutable outcome of one valuation request.
type ValuationResult struct {
	StockCode            string              `json:"stock_code"`
	AverageFCF           float64             `json:"avg_fcf"`
	EnterpriseValue      float64             `json:"enterprise_value"`
	TotalShares          float64             `json:"total_shares"`
	SharesSource         string              `json:"shares_source"`
	PricePerShare        float64             `json:"price_per_share"`
	MarketPrice          float64             `json:"current_market_price"`
	MarketPriceEstimated bool                `json:"market_price_estimated"`
	ValuationRatio       float64             `json:"valuation_ratio"`
	FCFHistory           []float64           `json:"fcf_history"`
	FinancialYears       int                 `json:"financial_years"`
	Parameters           ValuationParameters `json:"parameters"`
	Provenance           Provenance          `json:"provenance"`
	Caveat               string              `json:"warning,omitempty"`
	ValuedAt             time.Time           `json:"valued_at"`
}
