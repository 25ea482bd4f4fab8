package market

import (
	"context"
	"fmt"

	"github.com/newthinker/intrinsic/internal/collector"
	"github.com/newthinker/intrinsic/internal/core"
)

// SnapshotSource answers per-code quotes from a full-market snapshot. Each
// call fetches a fresh snapshot; nothing is cached across requests.
type SnapshotSource struct {
	name     string
	snapshot collector.QuoteSnapshotter
}

// NewSnapshotSource wraps a snapshotter as a QuoteSource
func NewSnapshotSource(name string, snapshot collector.QuoteSnapshotter) *SnapshotSource {
	return &SnapshotSource{name: name, snapshot: snapshot}
}

func (s *SnapshotSource) Name() string {
	return s.name
}

// Quote returns the snapshot row for code, or ErrNotFound when the code is absent.
func (s *SnapshotSource) Quote(ctx context.Context, code string) (*core.Quote, error) {
	quotes, err := s.snapshot.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for i := range quotes {
		if quotes[i].Code == code {
			q := quotes[i]
			return &q, nil
		}
	}
	return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("%s not in %s snapshot", code, s.name))
}
