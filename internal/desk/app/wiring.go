// Package app assembles the desk service from configuration and runs the
// desk HTTP server with graceful shutdown.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/cryptox"
	"github.com/dmitrijs2005/visitdesk/internal/desk/cache"
	"github.com/dmitrijs2005/visitdesk/internal/desk/client"
	"github.com/dmitrijs2005/visitdesk/internal/desk/config"
	"github.com/dmitrijs2005/visitdesk/internal/desk/export"
	"github.com/dmitrijs2005/visitdesk/internal/desk/journal"
	"github.com/dmitrijs2005/visitdesk/internal/desk/metrics"
	"github.com/dmitrijs2005/visitdesk/internal/desk/service"
	"github.com/dmitrijs2005/visitdesk/internal/desk/storage"
	"github.com/dmitrijs2005/visitdesk/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// Seams for tests.
var (
	openStorage  = storage.Open
	openJournal  = journal.Open
	newArchiver  = func(ctx context.Context, c export.S3Config) (export.Archiver, error) { return export.NewS3Archiver(ctx, c) }
	newAPIClient = func(baseURL string, timeout time.Duration) (client.Client, error) {
		return client.NewHTTPClient(baseURL, nil, timeout)
	}
)

// Runtime is a fully wired desk and the resources it holds.
type Runtime struct {
	Desk    *service.DeskService
	Metrics *metrics.Metrics

	dbs []*sql.DB
}

// Close releases the databases. The desk must be stopped first.
func (r *Runtime) Close() error {
	var errs []error
	for _, db := range r.dbs {
		if db != nil {
			errs = append(errs, db.Close())
		}
	}
	return errors.Join(errs...)
}

// Build wires the desk described by cfg. Metrics are registered on reg.
func Build(ctx context.Context, cfg *config.Config, logger logging.Logger, reg prometheus.Registerer) (*Runtime, error) {
	rt := &Runtime{Metrics: metrics.New(reg)}

	cipher, err := cryptox.NewSignatureCipher(cfg.SignatureKey)
	if err != nil {
		return nil, fmt.Errorf("signature cipher: %w", err)
	}

	api, err := newAPIClient(cfg.APIBaseURL, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	stateDB, dialect, err := openStorage(ctx, cfg.StateDSN)
	if err != nil {
		return nil, fmt.Errorf("state db: %w", err)
	}
	rt.dbs = append(rt.dbs, stateDB)

	var jrnl journal.Store
	if cfg.EffectiveJournalDSN() == cfg.StateDSN {
		jrnl = journal.NewSQLStore(stateDB, dialect)
	} else {
		var jdb *sql.DB
		jrnl, jdb, err = openJournal(ctx, cfg.EffectiveJournalDSN())
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("journal db: %w", err)
		}
		rt.dbs = append(rt.dbs, jdb)
	}

	eopts := []export.Option{export.WithDir(cfg.ExportDir), export.WithMetrics(rt.Metrics)}
	if cfg.ArchiveEnabled() {
		arch, err := newArchiver(ctx, export.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("export archive: %w", err)
		}
		eopts = append(eopts, export.WithArchiver(arch))
	}
	exporter := export.New(export.Format{Layout: cfg.ExportTimeLayout, Location: time.Local},
		logger.With("module", "export"), eopts...)

	rt.Desk = service.New(service.Config{
		RefreshInterval: cfg.RefreshInterval,
		AlertInterval:   cfg.AlertInterval,
		Operator:        cfg.Operator,
		Location:        time.Local,
	}, service.Deps{
		Client:   api,
		Cipher:   cipher,
		Cache:    cache.NewRepository(stateDB, dialect),
		Journal:  jrnl,
		Exporter: exporter,
		Metrics:  rt.Metrics,
		Logger:   logger.With("module", "desk"),
	})

	return rt, nil
}
