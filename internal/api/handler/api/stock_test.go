package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/intrinsic/internal/api/response"
	"github.com/newthinker/intrinsic/internal/app"
	"github.com/newthinker/intrinsic/internal/core"
	"github.com/newthinker/intrinsic/internal/storage/archive"
)

type mockApp struct {
	lastRequest app.ValuationRequest
	result      core.ValuationResult
	err         error
	reports     []archive.Report
}

func (m *mockApp) Search(ctx context.Context, input string) (core.StockIdentity, error) {
	if input == "" {
		return core.StockIdentity{}, core.WrapError(core.ErrInvalidParams, fmt.Errorf("empty"))
	}
	if input != "茅台" {
		return core.StockIdentity{}, core.ErrNotFound
	}
	return core.StockIdentity{Code: "600519", Name: "贵州茅台"}, nil
}

func (m *mockApp) Valuate(ctx context.Context, req app.ValuationRequest) (*app.Valuation, error) {
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	result := m.result
	result.StockCode = req.Code
	result.Parameters = req.Parameters
	return &app.Valuation{Result: result, ReportID: "r-1"}, nil
}

func (m *mockApp) MarketData(ctx context.Context, code string) (*core.Quote, error) {
	if code != "600519" {
		return nil, core.ErrNotFound
	}
	return &core.Quote{Code: code, Price: 1700.5, PE: 25.1, PB: 8.2}, nil
}

func (m *mockApp) History(ctx context.Context, code string) ([]archive.Report, error) {
	return m.reports, nil
}

func (m *mockApp) Defaults() core.ValuationParameters {
	return core.DefaultValuationParameters()
}

func sampleResult() core.ValuationResult {
	return core.ValuationResult{
		StockCode:            "600519",
		AverageFCF:           7.5e8,
		EnterpriseValue:      1.234567e10,
		TotalShares:          1256197800,
		SharesSource:         "structure",
		PricePerShare:        9.82789,
		MarketPrice:          10,
		MarketPriceEstimated: true,
		ValuationRatio:       0.982789,
		FCFHistory:           []float64{7.5e8, 6.04e8, 1.5e6},
		FinancialYears:       3,
		Parameters:           core.DefaultValuationParameters(),
		Provenance:           core.ProvenanceEstimated,
		Caveat:               "financial data for this stock is simulated, for reference only",
		ValuedAt:             time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
	}
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp response.SuccessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data %T", resp.Data)
	}
	return data
}

func TestStockHandler_Search(t *testing.T) {
	handler := NewStockHandler(&mockApp{})

	req := httptest.NewRequest("POST", "/stock/search", bytes.NewBufferString(`{"stock_input": "茅台"}`))
	w := httptest.NewRecorder()
	handler.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := decodeData(t, w)
	if data["stock_code"] != "600519" || data["stock_name"] != "贵州茅台" {
		t.Errorf("unexpected identity %v", data)
	}
}

func TestStockHandler_Search_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"not found", `{"stock_input": "不存在"}`, http.StatusNotFound},
		{"empty input", `{"stock_input": ""}`, http.StatusBadRequest},
		{"invalid json", `{invalid json}`, http.StatusBadRequest},
	}

	handler := NewStockHandler(&mockApp{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/stock/search", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.Search(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestStockHandler_Valuation(t *testing.T) {
	m := &mockApp{result: sampleResult()}
	handler := NewStockHandler(m)

	req := httptest.NewRequest("POST", "/stock/valuation", bytes.NewBufferString(`{"stock_code": "600519", "discount_rate": 0.08, "stage3_years": 0}`))
	w := httptest.NewRecorder()
	handler.Valuation(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	want := core.DefaultValuationParameters()
	want.DiscountRate = 0.08
	if m.lastRequest.Parameters != want {
		t.Errorf("parameters = %+v, want %+v", m.lastRequest.Parameters, want)
	}
	if m.lastRequest.Code != "600519" {
		t.Errorf("unexpected code %q", m.lastRequest.Code)
	}

	data := decodeData(t, w)
	checks := map[string]any{
		"report_id":              "r-1",
		"avg_fcf":                7.5,
		"enterprise_value":       123.46,
		"total_shares":           12.56,
		"price_per_share":        9.83,
		"current_market_price":   10.0,
		"valuation_ratio":        0.98,
		"financial_years":        3.0,
		"market_price_estimated": true,
		"provenance":             "estimated",
		"warning":                "financial data for this stock is simulated, for reference only",
	}
	for k, v := range checks {
		if data[k] != v {
			t.Errorf("%s = %v, want %v", k, data[k], v)
		}
	}

	history := data["fcf_history"].([]any)
	if len(history) != 3 || history[0] != 7.5 || history[1] != 6.04 || history[2] != 0.02 {
		t.Errorf("unexpected fcf_history %v", history)
	}
	params := data["parameters"].(map[string]any)
	if params["discount_rate"] != 0.08 || params["stage1_years"] != 5.0 || params["stage3_growth"] != 0.02 {
		t.Errorf("unexpected parameters %v", params)
	}
}

func TestStockHandler_Valuation_RejectsHugeHorizon(t *testing.T) {
	m := &mockApp{result: sampleResult(), err: core.WrapError(core.ErrInvalidParams, fmt.Errorf("stage1_years too large"))}
	handler := NewStockHandler(m)

	req := httptest.NewRequest("POST", "/stock/valuation", bytes.NewBufferString(`{"stock_code": "600519", "stage1_years": 2000000000}`))
	w := httptest.NewRecorder()
	handler.Valuation(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if m.lastRequest.Parameters.Stage1.Years != 2000000000 {
		t.Errorf("request not forwarded: %+v", m.lastRequest.Parameters)
	}
}

func TestStockHandler_Valuation_NoWarningForStoredData(t *testing.T) {
	r := sampleResult()
	r.Provenance = core.ProvenanceStored
	r.Caveat = ""
	handler := NewStockHandler(&mockApp{result: r})

	req := httptest.NewRequest("POST", "/stock/valuation", bytes.NewBufferString(`{"stock_code": "600519"}`))
	w := httptest.NewRecorder()
	handler.Valuation(w, req)

	data := decodeData(t, w)
	if _, ok := data["warning"]; ok {
		t.Errorf("stored data must not carry a warning: %v", data["warning"])
	}
}

func TestStockHandler_Valuation_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid params", core.ErrInvalidParams, http.StatusBadRequest},
		{"no data", core.ErrNoFinancialData, http.StatusBadRequest},
		{"degenerate", core.ErrValuation, http.StatusUnprocessableEntity},
		{"provider down", core.ErrProviderUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewStockHandler(&mockApp{err: tt.err})
			req := httptest.NewRequest("POST", "/stock/valuation", bytes.NewBufferString(`{"stock_code": "600519"}`))
			w := httptest.NewRecorder()
			handler.Valuation(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestStockHandler_MarketData(t *testing.T) {
	handler := NewStockHandler(&mockApp{})

	req := httptest.NewRequest("GET", "/stock/market-data/600519", nil)
	req.SetPathValue("code", "600519")
	w := httptest.NewRecorder()
	handler.MarketData(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := decodeData(t, w)
	if data["current_price"] != 1700.5 || data["pe_ratio"] != 25.1 || data["pb_ratio"] != 8.2 {
		t.Errorf("unexpected market data %v", data)
	}

	req = httptest.NewRequest("GET", "/stock/market-data/000000", nil)
	req.SetPathValue("code", "000000")
	w = httptest.NewRecorder()
	handler.MarketData(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestStockHandler_History(t *testing.T) {
	handler := NewStockHandler(&mockApp{reports: []archive.Report{
		{ID: "b", Name: "贵州茅台", Result: sampleResult()},
		{ID: "a", Result: sampleResult()},
	}})

	req := httptest.NewRequest("GET", "/stock/valuations/600519", nil)
	req.SetPathValue("code", "600519")
	w := httptest.NewRecorder()
	handler.History(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := decodeData(t, w)
	if data["count"] != 2.0 {
		t.Errorf("expected 2 reports, got %v", data["count"])
	}
	reports := data["reports"].([]any)
	first := reports[0].(map[string]any)
	if first["report_id"] != "b" || first["stock_name"] != "贵州茅台" || first["enterprise_value"] != 123.46 {
		t.Errorf("unexpected first report %v", first)
	}
}

func TestValuationRequest_Parameters(t *testing.T) {
	years := 3
	growth := 0.03
	req := ValuationRequest{Stage3Years: &years, Stage3Growth: &growth}

	p := req.Parameters(core.DefaultValuationParameters())
	if p.Stage3 != (core.Stage{Years: 3, Growth: 0.03}) {
		t.Errorf("unexpected stage3 %+v", p.Stage3)
	}
	if p.DiscountRate != 0.10 || p.Stage1.Years != 5 {
		t.Errorf("defaults not kept: %+v", p)
	}
}
