package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/newthinker/intrinsic/internal/core"
)

// Report is one archived valuation
type Report struct {
	ID     string               `json:"id"`
	Name   string               `json:"stock_name,omitempty"`
	Result core.ValuationResult `json:"result"`
}

// Reports files valuation results as JSON under
// reports/{code}/{yyyymmdd}/{uuid}.json.
type Reports struct {
	storage Storage
}

// NewReports wraps a Storage backend
func NewReports(storage Storage) *Reports {
	return &Reports{storage: storage}
}

// Save archives a result and returns its report ID.
func (r *Reports) Save(ctx context.Context, name string, result core.ValuationResult) (string, error) {
	if result.StockCode == "" {
		return "", fmt.Errorf("report has no stock code")
	}
	rep := Report{ID: uuid.NewString(), Name: name, Result: result}
	data, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}

	key := path.Join("reports", result.StockCode, result.ValuedAt.UTC().Format("20060102"), rep.ID+".json")
	if err := r.storage.Write(ctx, key, data); err != nil {
		return "", fmt.Errorf("writing report %s: %w", key, err)
	}
	return rep.ID, nil
}

// List returns the archived reports for code, newest first.
func (r *Reports) List(ctx context.Context, code string) ([]Report, error) {
	if code == "" || strings.ContainsAny(code, "/\\.") {
		return nil, core.WrapError(core.ErrInvalidParams, fmt.Errorf("invalid stock code %q", code))
	}

	keys, err := r.storage.List(ctx, path.Join("reports", code))
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	reports := make([]Report, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		data, err := r.storage.Read(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("reading report %s: %w", key, err)
		}
		var rep Report
		if err := json.Unmarshal(data, &rep); err != nil {
			return nil, fmt.Errorf("decoding report %s: %w", key, err)
		}
		reports = append(reports, rep)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Result.ValuedAt.After(reports[j].Result.ValuedAt)
	})
	return reports, nil
}
