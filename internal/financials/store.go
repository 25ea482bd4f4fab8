package financials

import (
	"context"
	"fmt"
	"math"

	"github.com/newthinker/intrinsic/internal/collector"
	"github.com/newthinker/intrinsic/internal/core"
)

// StoreTier reads up to three fiscal years from the record store.
func StoreTier(store collector.RecordStore) TierFunc {
	return func(ctx context.Context, code string) (TierResult, error) {
		records, err := store.RecentYears(ctx, code, core.MaxFinancialYears)
		if err != nil {
			return Empty, fmt.Errorf("record store: %w", err)
		}
		if len(records) == 0 {
			return Empty, nil
		}
		out := make([]core.FinancialYearRecord, len(records))
		for i, r := range records {
			r.CapitalExpenditure = math.Abs(r.CapitalExpenditure)
			out[i] = r
		}
		return Found(core.NewStoredSeries(code, "store", out)), nil
	}
}
