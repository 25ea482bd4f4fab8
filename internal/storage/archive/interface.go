// Package archive stores valuation reports in a blob backend.
package archive

import (
	"context"
	"fmt"
)

// Storage is a flat blob store addressed by slash-separated paths.
type Storage interface {
	// Write stores data at path, replacing anything already there
	Write(ctx context.Context, path string, data []byte) error

	// Read returns the data at path, or an error wrapping core.ErrNotFound
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns every path under prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)

	Delete(ctx context.Context, path string) error

	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a backend
type Config struct {
	Type string // localfs or s3
	Path string
	S3   S3Config
}

// Open builds the backend named by cfg.Type.
func Open(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}
