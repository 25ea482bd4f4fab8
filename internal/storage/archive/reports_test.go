package archive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/intrinsic/internal/core"
)

func TestReports_SaveList(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	reports := NewReports(fs)
	ctx := context.Background()

	older := core.ValuationResult{
		StockCode:       "600519",
		EnterpriseValue: 1e12,
		ValuedAt:        time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC),
	}
	newer := older
	newer.EnterpriseValue = 2e12
	newer.ValuedAt = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	id1, err := reports.Save(ctx, "贵州茅台", older)
	require.NoError(t, err)
	id2, err := reports.Save(ctx, "贵州茅台", newer)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	_, err = reports.Save(ctx, "", core.ValuationResult{StockCode: "000001", ValuedAt: newer.ValuedAt})
	require.NoError(t, err)

	paths, err := fs.List(ctx, "reports/600519/20261019")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.True(t, strings.HasSuffix(paths[0], id2+".json"))

	list, err := reports.List(ctx, "600519")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, id2, list[0].ID)
	assert.Equal(t, 2e12, list[0].Result.EnterpriseValue)
	assert.Equal(t, "贵州茅台", list[1].Name)
	assert.True(t, older.ValuedAt.Equal(list[1].Result.ValuedAt))
}

func TestReports_ListEmpty(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	list, err := NewReports(fs).List(context.Background(), "600519")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReports_InvalidCode(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	reports := NewReports(fs)

	_, err = reports.List(context.Background(), "../etc")
	assert.True(t, errors.Is(err, core.ErrInvalidParams))

	_, err = reports.Save(context.Background(), "", core.ValuationResult{})
	assert.Error(t, err)
}
