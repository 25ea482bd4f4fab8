package record

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/intrinsic/internal/core"
)

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "", 0)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestOpen_BadDSN(t *testing.T) {
	_, err := Open(context.Background(), "postgres://%zz", 0)
	assert.Error(t, err)
}

// openTestDB connects to INTRINSIC_TEST_DATABASE_URL, or skips.
func openTestDB(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("INTRINSIC_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("INTRINSIC_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := Open(ctx, dsn, 2)
	require.NoError(t, err)
	t.Cleanup(p.Close)

	require.NoError(t, p.Migrate(ctx))
	_, err = p.pool.Exec(ctx, `DELETE FROM financial_data WHERE stock_code IN ('990001', '990002')`)
	require.NoError(t, err)
	return p
}

func TestPostgres_RecentYears(t *testing.T) {
	p := openTestDB(t)
	ctx := context.Background()

	for _, y := range []int{2020, 2021, 2022, 2023} {
		_, err := p.pool.Exec(ctx, `
INSERT INTO financial_data (stock_code, company_name, report_year, net_income, interest_expense,
	depreciation, amortization, capex, current_assets, current_liabilities)
VALUES ('990001', '测试股份', $1, $2, 5e7, 2e8, 1e7, -3e8, 5e9, 3e9)`, y, float64(y-2019)*1e9)
		require.NoError(t, err)
	}

	recs, err := p.RecentYears(ctx, "990001", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "2023-12-31", recs[0].PeriodLabel)
	assert.Equal(t, 4e9, recs[0].NetIncome)
	assert.Equal(t, 1e7, recs[0].Amortization)
	assert.Equal(t, -3e8, recs[0].CapitalExpenditure)
	assert.Zero(t, recs[0].TotalShares)
	assert.Equal(t, "2021-12-31", recs[2].PeriodLabel)

	none, err := p.RecentYears(ctx, "990002", 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostgres_FindIdentity(t *testing.T) {
	p := openTestDB(t)
	ctx := context.Background()

	_, err := p.pool.Exec(ctx, `
INSERT INTO financial_data (stock_code, company_name, report_year)
VALUES ('990002', '测试银行', 2023), ('990001', '测试股份', 2023)`)
	require.NoError(t, err)

	id, err := p.FindIdentity(ctx, "990002", "")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "测试银行", id.Name)

	id, err = p.FindIdentity(ctx, "", "测试")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "990001", id.Code)

	id, err = p.FindIdentity(ctx, "", "不存在")
	require.NoError(t, err)
	assert.Nil(t, id)
}
