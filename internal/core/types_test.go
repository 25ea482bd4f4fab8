package core

import (
	"errors"
	"testing"
	"time"
)

func TestQuote_IsValid(t *testing.T) {
	q := Quote{
		Code:  "600519",
		Price: 1680.50,
		Time:  time.Now(),
	}

	if !q.IsValid() {
		t.Error("expected valid quote")
	}

	invalid := Quote{Code: "", Price: 0}
	if invalid.IsValid() {
		t.Error("expected invalid quote")
	}
}

func TestExchangeOf(t *testing.T) {
	tests := []struct {
		code string
		want Exchange
	}{
		{"600519", ExchangeSH},
		{"900901", ExchangeSH},
		{"000001", ExchangeSZ},
		{"300750", ExchangeSZ},
		{"830799", ExchangeBJ},
		{"", ExchangeSZ},
	}
	for _, tc := range tests {
		if got := ExchangeOf(tc.code); got != tc.want {
			t.Errorf("ExchangeOf(%q) = %s, want %s", tc.code, got, tc.want)
		}
	}
}

func TestFinancialSeries_CapsAtThreeYears(t *testing.T) {
	records := make([]FinancialYearRecord, 5)
	for i := range records {
		records[i].NetIncome = float64(i)
	}

	s := NewStoredSeries("600519", "store", records)
	if s.Len() != MaxFinancialYears {
		t.Fatalf("expected %d records, got %d", MaxFinancialYears, s.Len())
	}
	if s.Records[0].NetIncome != 0 || s.Records[2].NetIncome != 2 {
		t.Error("expected the most recent records to be kept in order")
	}

	records[0].NetIncome = 99
	if s.Records[0].NetIncome == 99 {
		t.Error("series should not alias the caller's slice")
	}
}

func TestFinancialSeries_Provenance(t *testing.T) {
	stored := NewStoredSeries("600519", "store", []FinancialYearRecord{{}})
	if stored.IsEstimated() || stored.Caveat != "" {
		t.Error("stored series must not be estimated")
	}

	est := NewEstimatedSeries("600519", "synthetic", "simulated", []FinancialYearRecord{{}})
	if !est.IsEstimated() || est.Caveat != "simulated" {
		t.Error("estimated series must carry its caveat")
	}
}

func TestValuationParameters_Defaults(t *testing.T) {
	p := DefaultValuationParameters()
	if p.DiscountRate != 0.10 || p.Stage1.Years != 5 || p.Stage1.Growth != 0.10 ||
		p.Stage2.Years != 5 || p.Stage2.Growth != 0.05 || p.Stage3.Years != 0 || p.Stage3.Growth != 0.02 {
		t.Errorf("unexpected defaults: %+v", p)
	}
	if !p.Perpetual() {
		t.Error("defaults should use a perpetual terminal stage")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValuationParameters_ValidateNegativeYears(t *testing.T) {
	p := DefaultValuationParameters()
	p.Stage2.Years = -1
	err := p.Validate()
	if !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
}

func TestValuationParameters_ValidateYearsCap(t *testing.T) {
	tests := []struct {
		name  string
		years [3]int
		ok    bool
	}{
		{"at cap", [3]int{MaxStageYears, MaxStageYears, MaxStageYears}, true},
		{"zero horizon", [3]int{0, 0, 0}, true},
		{"stage1 over cap", [3]int{MaxStageYears + 1, 5, 0}, false},
		{"stage3 huge", [3]int{5, 5, 2_000_000_000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultValuationParameters()
			p.Stage1.Years, p.Stage2.Years, p.Stage3.Years = tt.years[0], tt.years[1], tt.years[2]
			err := p.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestFinancialYearRecord_WorkingCapital(t *testing.T) {
	r := FinancialYearRecord{CurrentAssets: 5e9, CurrentLiabilities: 3e9}
	if r.WorkingCapital() != 2e9 {
		t.Errorf("expected 2e9, got %v", r.WorkingCapital())
	}
}
