package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/intrinsic/internal/core"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "reports/600519/a.json", []byte(`{"a":1}`)))

	got, err := fs.Read(ctx, "reports/600519/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	_, err = fs.Read(ctx, "reports/600519/missing.json")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestLocalFS_StaysUnderBase(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "archive")
	fs, err := NewLocalFS(base)
	require.NoError(t, err)

	require.NoError(t, fs.Write(context.Background(), "../escape.json", []byte("x")))

	_, err = os.Stat(filepath.Join(dir, "escape.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(base, "escape.json"))
	assert.NoError(t, err)
}

func TestLocalFS_Exists(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := fs.Exists(ctx, "nonexistent.json")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, fs.Write(ctx, "exists.json", []byte("data")))
	exists, err = fs.Exists(ctx, "exists.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalFS_List(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "reports/600519/20261019/b.json", []byte("b")))
	require.NoError(t, fs.Write(ctx, "reports/600519/20261018/a.json", []byte("a")))
	require.NoError(t, fs.Write(ctx, "reports/000001/20261019/c.json", []byte("c")))

	paths, err := fs.List(ctx, "reports/600519")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"reports/600519/20261018/a.json",
		"reports/600519/20261019/b.json",
	}, paths)

	paths, err = fs.List(ctx, "reports/999999")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLocalFS_Delete(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "delete.json", []byte("data")))
	require.NoError(t, fs.Delete(ctx, "delete.json"))
	require.NoError(t, fs.Delete(ctx, "delete.json"))

	exists, _ := fs.Exists(ctx, "delete.json")
	assert.False(t, exists)
}

func TestNewLocalFS_EmptyPath(t *testing.T) {
	_, err := NewLocalFS("")
	assert.Error(t, err)
}
