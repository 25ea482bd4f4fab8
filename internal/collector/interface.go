package collector

import (
	"context"
	"time"

	"github.com/newthinker/intrinsic/internal/core"
)

// Row is one period of a raw financial statement. Keys are whatever the
// provider emits; values are numbers, numeric strings or nil.
type Row map[string]any

// ShareChange is one entry of a company's share capital history
type ShareChange struct {
	Date        time.Time
	TotalShares float64 // shares, not 10k-share units
}

// ReferenceLister provides the full code/name table in provider order
type ReferenceLister interface {
	ListStocks(ctx context.Context) ([]core.StockIdentity, error)
}

// StatementSource provides yearly financial statements, most recent first.
// Each statement may fail or come back empty independently.
type StatementSource interface {
	CashFlow(ctx context.Context, code string) ([]Row, error)
	BalanceSheet(ctx context.Context, code string) ([]Row, error)
	IncomeStatement(ctx context.Context, code string) ([]Row, error)
}

// QuoteSnapshotter provides a full-market quote table
type QuoteSnapshotter interface {
	Snapshot(ctx context.Context) ([]core.Quote, error)
}

// QuoteSource provides a quote for a single stock
type QuoteSource interface {
	Name() string
	Quote(ctx context.Context, code string) (*core.Quote, error)
}

// BasicInfoSource provides the per-code basic-info table as item -> text,
// e.g. "总股本" -> "12.56亿".
type BasicInfoSource interface {
	BasicInfo(ctx context.Context, code string) (map[string]string, error)
}

// ShareStructure provides share capital changes, most recent first
type ShareStructure interface {
	ShareChanges(ctx context.Context, code string) ([]ShareChange, error)
}

// RecordStore is the read side of the external financial-record store.
type RecordStore interface {
	// RecentYears returns up to limit fiscal years for code, most recent first.
	RecentYears(ctx context.Context, code string, limit int) ([]core.FinancialYearRecord, error)

	// FindIdentity looks a stock up by exact code, or by name fragment when code is empty.
	// It returns nil, nil when nothing matches.
	FindIdentity(ctx context.Context, code, nameFragment string) (*core.StockIdentity, error)
}

// Basic-info item keys
const (
	InfoTotalShares = "总股本"
	InfoFloatShares = "流通股"
	InfoMarketCap   = "总市值"
	InfoPEDynamic   = "市盈率-动态"
	InfoPB          = "市净率"
	InfoCode        = "股票代码"
	InfoName        = "股票简称"
)
