// Package record reads fiscal-year financial records by stock code.
package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newthinker/intrinsic/internal/core"
)

// Schema creates the financial_data table read by Postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS financial_data (
	id                  BIGSERIAL PRIMARY KEY,
	stock_code          VARCHAR(10)  NOT NULL,
	company_name        VARCHAR(100) NOT NULL,
	report_year         INTEGER      NOT NULL,
	report_date         DATE,
	net_income          DOUBLE PRECISION,
	interest_expense    DOUBLE PRECISION,
	depreciation        DOUBLE PRECISION,
	amortization        DOUBLE PRECISION,
	capex               DOUBLE PRECISION,
	current_assets      DOUBLE PRECISION,
	current_liabilities DOUBLE PRECISION,
	total_shares        BIGINT,
	UNIQUE (stock_code, report_year)
)`

// migrations upgrade tables created by earlier schemas
var migrations = []string{
	`ALTER TABLE financial_data ADD COLUMN IF NOT EXISTS amortization DOUBLE PRECISION`,
}

const recentYearsQuery = `
SELECT COALESCE(report_date::text, report_year::text || '-12-31'),
       COALESCE(net_income, 0),
       COALESCE(interest_expense, 0),
       COALESCE(depreciation, 0),
       COALESCE(amortization, 0),
       COALESCE(capex, 0),
       COALESCE(current_assets, 0),
       COALESCE(current_liabilities, 0),
       COALESCE(total_shares, 0)
FROM financial_data
WHERE stock_code = $1
ORDER BY report_year DESC
LIMIT $2`

// Postgres is the pgx-backed record store
type Postgres struct {
	pool *pgxpool.Pool
}

// Open connects a pool to dsn and verifies it with a ping.
func Open(ctx context.Context, dsn string, maxConns int32) (*Postgres, error) {
	if dsn == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("database dsn"))
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgres wraps an existing pool
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the schema if it does not exist and applies migrations
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	for _, m := range migrations {
		if _, err := p.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}

// Close releases the pool
func (p *Postgres) Close() {
	p.pool.Close()
}

// RecentYears returns up to limit years for code, most recent first.
func (p *Postgres) RecentYears(ctx context.Context, code string, limit int) ([]core.FinancialYearRecord, error) {
	if limit <= 0 || limit > core.MaxFinancialYears {
		limit = core.MaxFinancialYears
	}

	rows, err := p.pool.Query(ctx, recentYearsQuery, code, limit)
	if err != nil {
		return nil, fmt.Errorf("querying financial_data: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.FinancialYearRecord, error) {
		var r core.FinancialYearRecord
		err := row.Scan(
			&r.PeriodLabel,
			&r.NetIncome,
			&r.InterestExpense,
			&r.Depreciation,
			&r.Amortization,
			&r.CapitalExpenditure,
			&r.CurrentAssets,
			&r.CurrentLiabilities,
			&r.TotalShares,
		)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning financial_data: %w", err)
	}
	return records, nil
}

// FindIdentity matches an exact code, or else the first name containing nameFragment.
func (p *Postgres) FindIdentity(ctx context.Context, code, nameFragment string) (*core.StockIdentity, error) {
	var (
		query string
		arg   string
	)
	switch {
	case code != "":
		query = `SELECT stock_code, company_name FROM financial_data WHERE stock_code = $1 ORDER BY report_year DESC LIMIT 1`
		arg = code
	case nameFragment != "":
		query = `SELECT stock_code, company_name FROM financial_data WHERE strpos(company_name, $1) > 0 ORDER BY stock_code LIMIT 1`
		arg = nameFragment
	default:
		return nil, nil
	}

	var id core.StockIdentity
	err := p.pool.QueryRow(ctx, query, arg).Scan(&id.Code, &id.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up identity: %w", err)
	}
	return &id, nil
}
