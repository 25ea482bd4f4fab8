package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/newthinker/intrinsic/internal/collector"
	"github.com/newthinker/intrinsic/internal/collector/eastmoney"
	"github.com/newthinker/intrinsic/internal/collector/lixinger"
	"github.com/newthinker/intrinsic/internal/config"
	"github.com/newthinker/intrinsic/internal/financials"
	"github.com/newthinker/intrinsic/internal/market"
	"github.com/newthinker/intrinsic/internal/metrics"
	"github.com/newthinker/intrinsic/internal/resolver"
	"github.com/newthinker/intrinsic/internal/shares"
	"github.com/newthinker/intrinsic/internal/storage/archive"
	"github.com/newthinker/intrinsic/internal/storage/record"
	"github.com/newthinker/intrinsic/internal/valuation"
)

// Build wires the production pipeline from configuration. An unreachable
// record store is logged and skipped; a broken archive backend is an error.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg *metrics.Registry) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	em := eastmoney.New(eastmoney.Config{
		PushURL:       cfg.Providers.Eastmoney.PushURL,
		DatacenterURL: cfg.Providers.Eastmoney.DatacenterURL,
		Timeout:       cfg.Providers.Eastmoney.Timeout,
	}, logger)

	var (
		store   collector.RecordStore
		closers []func()
	)
	if cfg.Database.DSN != "" {
		pg, err := record.Open(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
		if err != nil {
			logger.Warn("record store unavailable, continuing without it", zap.Error(err))
		} else {
			store = pg
			closers = append(closers, pg.Close)
			logger.Info("record store connected")
		}
	}

	src := financials.Sources{
		Store:     store,
		BasicInfo: em,
	}
	if cfg.Providers.StatementsEnabled {
		src.Statements = em
	}

	snapshot := market.NewSnapshotSource("eastmoney_snapshot", em)
	quotes := []collector.QuoteSource{snapshot}
	views := []collector.QuoteSource{snapshot, em}
	if cfg.Providers.Lixinger.Enabled {
		lx := lixinger.New(cfg.Providers.Lixinger.APIKey, cfg.Providers.Lixinger.BaseURL)
		quotes = append(quotes, lx)
		views = append(views, lx)
	}

	var reports *archive.Reports
	if cfg.Archive.Enabled {
		backend, err := archive.Open(archive.Config{
			Type: cfg.Archive.Type,
			Path: cfg.Archive.Path,
			S3: archive.S3Config{
				Bucket:    cfg.Archive.S3.Bucket,
				Endpoint:  cfg.Archive.S3.Endpoint,
				Region:    cfg.Archive.S3.Region,
				AccessKey: cfg.Archive.S3.AccessKey,
				SecretKey: cfg.Archive.S3.SecretKey,
				Prefix:    cfg.Archive.S3.Prefix,
			},
		})
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, err
		}
		reports = archive.NewReports(backend)
	}

	a := New(Components{
		Resolver:   resolver.New(em, store, logger, reg),
		Financials: financials.New(src, logger, reg),
		Engine:     valuation.NewEngine(logger),
		Shares:     shares.New(em, em, cfg.Valuation.DefaultShares, logger, reg),
		Comparator: market.NewComparator(quotes, cfg.Valuation.PlaceholderPrice, logger, reg),
		Market:     market.NewView(views, em, logger),
		Reports:    reports,
	}, cfg.Valuation.Parameters(), logger, reg)
	a.closers = closers
	return a, nil
}
