// Package resolver maps free-text input to a canonical stock code and name.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/intrinsic/internal/collector"
	"github.com/newthinker/intrinsic/internal/core"
	"github.com/newthinker/intrinsic/internal/metrics"
)

// Resolver looks input up in the provider's reference list. When the list
// cannot be fetched it falls back to the record store, if one is configured.
type Resolver struct {
	lister  collector.ReferenceLister
	store   collector.RecordStore
	logger  *zap.Logger
	metrics *metrics.Registry
}

// New creates a Resolver. store may be nil.
func New(lister collector.ReferenceLister, store collector.RecordStore, logger *zap.Logger, reg *metrics.Registry) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		lister:  lister,
		store:   store,
		logger:  logger.Named("resolver"),
		metrics: reg,
	}
}

// Resolve treats all-digit input as a code, zero-padded to CodeWidth, and
// anything else as a case-sensitive name fragment. Several name matches
// resolve to the first in listing order.
func (r *Resolver) Resolve(ctx context.Context, input string) (core.StockIdentity, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return core.StockIdentity{}, core.WrapError(core.ErrInvalidParams, fmt.Errorf("stock input is empty"))
	}

	code, isCode := NormalizeCode(input)

	list, err := r.lister.ListStocks(ctx)
	if err != nil {
		r.metrics.RecordProviderFailure("reference", "list_stocks")
		r.logger.Warn("reference list unavailable", zap.String("input", input), zap.Error(err))
		return r.fromStore(ctx, input, code, isCode, err)
	}

	var id *core.StockIdentity
	if isCode {
		id = matchCode(list, code)
	} else {
		id = matchName(list, input)
	}
	if id == nil {
		return core.StockIdentity{}, core.WrapError(core.ErrNotFound, fmt.Errorf("no stock matches %q", input))
	}
	return *id, nil
}

func (r *Resolver) fromStore(ctx context.Context, input, code string, isCode bool, cause error) (core.StockIdentity, error) {
	if r.store != nil {
		var (
			id  *core.StockIdentity
			err error
		)
		if isCode {
			id, err = r.store.FindIdentity(ctx, code, "")
		} else {
			id, err = r.store.FindIdentity(ctx, "", input)
		}
		if err != nil {
			r.logger.Warn("record store lookup failed", zap.String("input", input), zap.Error(err))
		} else if id != nil {
			return *id, nil
		}
	}
	return core.StockIdentity{}, core.WrapError(core.ErrProviderUnavailable, cause)
}

// NormalizeCode pads all-digit input to CodeWidth. ok is false for input that
// is not entirely digits.
func NormalizeCode(input string) (code string, ok bool) {
	if input == "" {
		return "", false
	}
	for _, c := range input {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	if len(input) < core.CodeWidth {
		input = strings.Repeat("0", core.CodeWidth-len(input)) + input
	}
	return input, true
}

func matchCode(list []core.StockIdentity, code string) *core.StockIdentity {
	for i := range list {
		if list[i].Code == code {
			return &list[i]
		}
	}
	return nil
}

func matchName(list []core.StockIdentity, fragment string) *core.StockIdentity {
	for i := range list {
		if strings.Contains(list[i].Name, fragment) {
			return &list[i]
		}
	}
	return nil
}
