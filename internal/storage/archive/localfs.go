package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/newthinker/intrinsic/internal/core"
)

// LocalFS stores reports under a directory on the local filesystem
type LocalFS struct {
	basePath string
}

// NewLocalFS creates the base directory if needed
func NewLocalFS(basePath string) (*LocalFS, error) {
	if basePath == "" {
		return nil, fmt.Errorf("archive path is empty")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating base path: %w", err)
	}
	return &LocalFS{basePath: basePath}, nil
}

// fullPath anchors path under the base directory; ".." cannot climb out
func (l *LocalFS) fullPath(path string) string {
	return filepath.Join(l.basePath, filepath.Clean("/"+filepath.FromSlash(path)))
}

func (l *LocalFS) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := l.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}
	return os.WriteFile(full, data, 0644)
}

func (l *LocalFS) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.fullPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("archive: %s", path))
	}
	return data, err
}

func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	paths := []string{}
	err := filepath.WalkDir(l.fullPath(prefix), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(l.basePath, p)
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (l *LocalFS) Delete(ctx context.Context, path string) error {
	if err := os.Remove(l.fullPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *LocalFS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(l.fullPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
