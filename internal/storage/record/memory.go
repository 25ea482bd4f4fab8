package record

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/newthinker/intrinsic/internal/core"
)

// MemoryStore is an in-memory record store for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	names   map[string]string
	records map[string][]core.FinancialYearRecord
	order   []string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		names:   make(map[string]string),
		records: make(map[string][]core.FinancialYearRecord),
	}
}

// Put adds or replaces the record for code and its period label.
func (m *MemoryStore) Put(code, name string, r core.FinancialYearRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.names[code]; !ok {
		m.order = append(m.order, code)
	}
	m.names[code] = name

	recs := m.records[code]
	for i := range recs {
		if recs[i].PeriodLabel == r.PeriodLabel {
			recs[i] = r
			return
		}
	}
	recs = append(recs, r)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].PeriodLabel > recs[j].PeriodLabel })
	m.records[code] = recs
}

// RecentYears returns copies of up to limit records, most recent first.
func (m *MemoryStore) RecentYears(ctx context.Context, code string, limit int) ([]core.FinancialYearRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := m.records[code]
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]core.FinancialYearRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// FindIdentity matches an exact code, or else the first name, in insertion
// order, containing nameFragment.
func (m *MemoryStore) FindIdentity(ctx context.Context, code, nameFragment string) (*core.StockIdentity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if code != "" {
		name, ok := m.names[code]
		if !ok {
			return nil, nil
		}
		return &core.StockIdentity{Code: code, Name: name}, nil
	}
	if nameFragment == "" {
		return nil, nil
	}
	for _, c := range m.order {
		if strings.Contains(m.names[c], nameFragment) {
			return &core.StockIdentity{Code: c, Name: m.names[c]}, nil
		}
	}
	return nil, nil
}
