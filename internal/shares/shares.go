// Package shares resolves a company's total share count.
package shares

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/intrinsic/internal/collector"
	"github.com/newthinker/intrinsic/internal/metrics"
)

// DefaultShares is used when no source yields a share count
const DefaultShares = 1e10

// Source tells where a share count came from
type Source string

const (
	SourceRecord    Source = "record"
	SourceStructure Source = "structure"
	SourceBasicInfo Source = "basic_info"
	SourceDefault   Source = "default"
)

// Lookup tries share structure, then basic info text, then a fixed default.
// Either collaborator may be nil.
type Lookup struct {
	structure     collector.ShareStructure
	info          collector.BasicInfoSource
	defaultShares float64
	logger        *zap.Logger
	metrics       *metrics.Registry
}

// New creates a Lookup. A non-positive defaultShares selects DefaultShares.
func New(structure collector.ShareStructure, info collector.BasicInfoSource, defaultShares float64, logger *zap.Logger, reg *metrics.Registry) *Lookup {
	if defaultShares <= 0 {
		defaultShares = DefaultShares
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lookup{
		structure:     structure,
		info:          info,
		defaultShares: defaultShares,
		logger:        logger.Named("shares"),
		metrics:       reg,
	}
}

// Resolve returns a positive share count for code. It never fails.
func (l *Lookup) Resolve(ctx context.Context, code string) (float64, Source) {
	n, src := l.resolve(ctx, code)
	l.metrics.RecordShareCountSource(string(src))
	return n, src
}

// Known records that the share count came with the financial record itself.
func (l *Lookup) Known(shares int64) (float64, Source) {
	l.metrics.RecordShareCountSource(string(SourceRecord))
	return float64(shares), SourceRecord
}

func (l *Lookup) resolve(ctx context.Context, code string) (float64, Source) {
	if l.structure != nil {
		changes, err := l.structure.ShareChanges(ctx, code)
		switch {
		case err != nil:
			l.logger.Debug("share structure unavailable", zap.String("code", code), zap.Error(err))
		default:
			for _, c := range changes {
				if c.TotalShares > 0 {
					return c.TotalShares, SourceStructure
				}
			}
		}
	}

	if l.info != nil {
		info, err := l.info.BasicInfo(ctx, code)
		if err != nil {
			l.logger.Debug("basic info unavailable", zap.String("code", code), zap.Error(err))
		} else if n, ok := ParseShareText(info[collector.InfoTotalShares]); ok && n > 0 {
			return n, SourceBasicInfo
		}
	}

	l.logger.Warn("share count unresolved, using default",
		zap.String("code", code),
		zap.Float64("default", l.defaultShares),
	)
	return l.defaultShares, SourceDefault
}

var numberPattern = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// ParseShareText reads values like "12.56亿", "3580.5万" or "1256197800".
func ParseShareText(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	switch {
	case strings.Contains(s, "万亿"):
		v *= 1e12
	case strings.Contains(s, "亿"):
		v *= 1e8
	case strings.Contains(s, "万"):
		v *= 1e4
	}
	return v, true
}
