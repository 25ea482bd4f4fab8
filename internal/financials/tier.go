package financials

import (
	"context"

	"github.com/newthinker/intrinsic/internal/core"
)

// TierResult is the outcome of one tier: either a non-empty series or nothing.
type TierResult struct {
	Found  bool
	Series core.FinancialSeries
}

// Found wraps a series produced by a tier
func Found(s core.FinancialSeries) TierResult {
	return TierResult{Found: s.Len() > 0, Series: s}
}

// Empty means the tier produced nothing and the next one should run
var Empty = TierResult{}

// TierFunc is one fallback level. The error only explains an Empty result; it
// never stops the chain.
type TierFunc func(ctx context.Context, code string) (TierResult, error)

// Tier is a named TierFunc
type Tier struct {
	Name  string
	Fetch TierFunc
}
