// Package api holds the JSON handlers for the /stock routes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/intrinsic/internal/api/response"
	"github.com/newthinker/intrinsic/internal/app"
	"github.com/newthinker/intrinsic/internal/core"
	"github.com/newthinker/intrinsic/internal/storage/archive"
)

// StockApp defines the interface needed from app.App.
type StockApp interface {
	Search(ctx context.Context, input string) (core.StockIdentity, error)
	Valuate(ctx context.Context, req app.ValuationRequest) (*app.Valuation, error)
	MarketData(ctx context.Context, code string) (*core.Quote, error)
	History(ctx context.Context, code string) ([]archive.Report, error)
	Defaults() core.ValuationParameters
}

// StockHandler handles the stock search, valuation and market data API.
type StockHandler struct {
	app StockApp
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(app StockApp) *StockHandler {
	return &StockHandler{app: app}
}

type searchRequest struct {
	StockInput string `json:"stock_input"`
}

// ValuationRequest is the POST /stock/valuation body. Omitted parameters
// take the configured defaults.
type ValuationRequest struct {
	StockCode    string   `json:"stock_code"`
	DiscountRate *float64 `json:"discount_rate"`
	Stage1Years  *int     `json:"stage1_years"`
	Stage1Growth *float64 `json:"stage1_growth"`
	Stage2Years  *int     `json:"stage2_years"`
	Stage2Growth *float64 `json:"stage2_growth"`
	Stage3Years  *int     `json:"stage3_years"`
	Stage3Growth *float64 `json:"stage3_growth"`
}

// Parameters fills omitted fields from defaults.
func (r ValuationRequest) Parameters(defaults core.ValuationParameters) core.ValuationParameters {
	p := defaults
	setFloat(&p.DiscountRate, r.DiscountRate)
	setInt(&p.Stage1.Years, r.Stage1Years)
	setFloat(&p.Stage1.Growth, r.Stage1Growth)
	setInt(&p.Stage2.Years, r.Stage2Years)
	setFloat(&p.Stage2.Growth, r.Stage2Growth)
	setInt(&p.Stage3.Years, r.Stage3Years)
	setFloat(&p.Stage3.Growth, r.Stage3Growth)
	return p
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// ParametersView is the flat parameter echo of a report
type ParametersView struct {
	DiscountRate float64 `json:"discount_rate"`
	Stage1Years  int     `json:"stage1_years"`
	Stage1Growth float64 `json:"stage1_growth"`
	Stage2Years  int     `json:"stage2_years"`
	Stage2Growth float64 `json:"stage2_growth"`
	Stage3Years  int     `json:"stage3_years"`
	Stage3Growth float64 `json:"stage3_growth"`
}

// ReportView is a valuation as served over HTTP. Cash amounts and share
// counts are in hundred millions; everything is rounded to two places.
type ReportView struct {
	ReportID             string         `json:"report_id,omitempty"`
	StockCode            string         `json:"stock_code"`
	StockName            string         `json:"stock_name,omitempty"`
	AverageFCF           float64        `json:"avg_fcf"`
	EnterpriseValue      float64        `json:"enterprise_value"`
	TotalShares          float64        `json:"total_shares"`
	SharesSource         string         `json:"shares_source"`
	PricePerShare        float64        `json:"price_per_share"`
	MarketPrice          float64        `json:"current_market_price"`
	MarketPriceEstimated bool           `json:"market_price_estimated"`
	ValuationRatio       float64        `json:"valuation_ratio"`
	FinancialYears       int            `json:"financial_years"`
	FCFHistory           []float64      `json:"fcf_history"`
	Parameters           ParametersView `json:"parameters"`
	Provenance           string         `json:"provenance"`
	Warning              string         `json:"warning,omitempty"`
	ValuedAt             time.Time      `json:"valued_at"`
}

var hundredMillion = decimal.NewFromInt(100_000_000)

// inHundredMillions converts currency units or shares to 亿, two places.
func inHundredMillions(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Div(hundredMillion).Round(2).InexactFloat64()
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// NewReportView scales a result for display.
func NewReportView(id, name string, r core.ValuationResult) ReportView {
	history := make([]float64, len(r.FCFHistory))
	for i, fcf := range r.FCFHistory {
		history[i] = inHundredMillions(fcf)
	}
	p := r.Parameters
	return ReportView{
		ReportID:             id,
		StockCode:            r.StockCode,
		StockName:            name,
		AverageFCF:           inHundredMillions(r.AverageFCF),
		EnterpriseValue:      inHundredMillions(r.EnterpriseValue),
		TotalShares:          inHundredMillions(r.TotalShares),
		SharesSource:         r.SharesSource,
		PricePerShare:        round2(r.PricePerShare),
		MarketPrice:          round2(r.MarketPrice),
		MarketPriceEstimated: r.MarketPriceEstimated,
		ValuationRatio:       round2(r.ValuationRatio),
		FinancialYears:       r.FinancialYears,
		FCFHistory:           history,
		Parameters: ParametersView{
			DiscountRate: p.DiscountRate,
			Stage1Years:  p.Stage1.Years,
			Stage1Growth: p.Stage1.Growth,
			Stage2Years:  p.Stage2.Years,
			Stage2Growth: p.Stage2.Growth,
			Stage3Years:  p.Stage3.Years,
			Stage3Growth: p.Stage3.Growth,
		},
		Provenance: string(r.Provenance),
		Warning:    r.Caveat,
		ValuedAt:   r.ValuedAt,
	}
}

// Search handles POST /stock/search.
func (h *StockHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(r, &req); err != nil {
		response.Fail(w, err)
		return
	}

	id, err := h.app.Search(r.Context(), req.StockInput)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, id)
}

// Valuation handles POST /stock/valuation.
func (h *StockHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	var req ValuationRequest
	if err := decode(r, &req); err != nil {
		response.Fail(w, err)
		return
	}

	v, err := h.app.Valuate(r.Context(), app.ValuationRequest{
		Code:       req.StockCode,
		Parameters: req.Parameters(h.app.Defaults()),
	})
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, NewReportView(v.ReportID, "", v.Result))
}

// MarketData handles GET /stock/market-data/{code}.
func (h *StockHandler) MarketData(w http.ResponseWriter, r *http.Request) {
	q, err := h.app.MarketData(r.Context(), r.PathValue("code"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, q)
}

// History handles GET /stock/valuations/{code}.
func (h *StockHandler) History(w http.ResponseWriter, r *http.Request) {
	reports, err := h.app.History(r.Context(), r.PathValue("code"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	views := make([]ReportView, len(reports))
	for i, rep := range reports {
		views[i] = NewReportView(rep.ID, rep.Name, rep.Result)
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"reports": views,
		"count":   len(views),
	})
}

func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return core.WrapError(core.ErrInvalidParams, fmt.Errorf("request body is empty"))
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.WrapError(core.ErrInvalidParams, fmt.Errorf("decoding request: %w", err))
	}
	return nil
}
