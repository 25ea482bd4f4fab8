package shares

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/newthinker/intrinsic/internal/collector"
	"github.com/newthinker/intrinsic/internal/metrics"
)

type fakeStructure struct {
	changes []collector.ShareChange
	err     error
}

func (f *fakeStructure) ShareChanges(context.Context, string) ([]collector.ShareChange, error) {
	return f.changes, f.err
}

type fakeInfo struct {
	info map[string]string
	err  error
}

func (f *fakeInfo) BasicInfo(context.Context, string) (map[string]string, error) {
	return f.info, f.err
}

func TestParseShareText(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.56亿", 12.56e8, true},
		{"3580.5万", 3580.5e4, true},
		{"1256197800", 1256197800, true},
		{"1,256,197,800股", 1256197800, true},
		{"1.2万亿", 1.2e12, true},
		{"--", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseShareText(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-3)
		})
	}
}

func TestLookup_Structure(t *testing.T) {
	structure := &fakeStructure{changes: []collector.ShareChange{
		{Date: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), TotalShares: 0},
		{Date: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), TotalShares: 1.2562e9},
	}}
	info := &fakeInfo{info: map[string]string{collector.InfoTotalShares: "99亿"}}

	n, src := New(structure, info, 0, nil, metrics.NewRegistry()).Resolve(context.Background(), "600519")
	assert.Equal(t, 1.2562e9, n)
	assert.Equal(t, SourceStructure, src)
}

func TestLookup_BasicInfo(t *testing.T) {
	structure := &fakeStructure{err: errors.New("timeout")}
	info := &fakeInfo{info: map[string]string{collector.InfoTotalShares: "12.56亿"}}

	n, src := New(structure, info, 0, nil, nil).Resolve(context.Background(), "600519")
	assert.InDelta(t, 12.56e8, n, 1e-3)
	assert.Equal(t, SourceBasicInfo, src)
}

func TestLookup_Default(t *testing.T) {
	tests := []struct {
		name      string
		structure collector.ShareStructure
		info      collector.BasicInfoSource
	}{
		{"no sources", nil, nil},
		{"both failing", &fakeStructure{err: errors.New("x")}, &fakeInfo{err: errors.New("y")}},
		{"unparsable text", &fakeStructure{}, &fakeInfo{info: map[string]string{collector.InfoTotalShares: "-"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, src := New(tt.structure, tt.info, 0, nil, nil).Resolve(context.Background(), "600519")
			assert.Equal(t, DefaultShares, n)
			assert.Equal(t, SourceDefault, src)
		})
	}

	n, _ := New(nil, nil, 5e8, nil, nil).Resolve(context.Background(), "600519")
	assert.Equal(t, 5e8, n)
}

func TestLookup_Known(t *testing.T) {
	n, src := New(nil, nil, 0, nil, nil).Known(1_000_000)
	assert.Equal(t, 1e6, n)
	assert.Equal(t, SourceRecord, src)
}
