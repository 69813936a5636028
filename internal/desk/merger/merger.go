package merger

import (
	"context"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/client"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/dmitrijs2005/visitdesk/internal/desk/snapshot"
	"github.com/dmitrijs2005/visitdesk/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Cache persists the last good raw batch per source for warm starts.
type Cache interface {
	Save(ctx context.Context, src models.Source, raws []models.RawRecord, fetchedAt time.Time) error
	LoadAll(ctx context.Context) (map[models.Source][]models.RawRecord, error)
}

// Metrics receives fetch and apply observations.
type Metrics interface {
	ObserveFetch(source string, d time.Duration, err error)
	ObserveApply(applied bool, records int)
	ObserveDecryptFailures(n int)
}

// Result describes one refresh.
type Result struct {
	Generation uint64
	Applied    bool
	Records    int
	Failed     []models.Source
}

type Merger struct {
	client  client.Client
	dec     Decrypter
	store   *snapshot.Store
	cache   Cache
	metrics Metrics
	logger  logging.Logger
	now     func() time.Time
}

type Option func(*Merger)

func WithCache(c Cache) Option { return func(m *Merger) { m.cache = c } }

func WithMetrics(mt Metrics) Option { return func(m *Merger) { m.metrics = mt } }

func WithClock(now func() time.Time) Option { return func(m *Merger) { m.now = now } }

func New(c client.Client, dec Decrypter, store *snapshot.Store, logger logging.Logger, opts ...Option) *Merger {
	m := &Merger{
		client: c,
		dec:    dec,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// fetchResult is written by exactly one goroutine.
type fetchResult struct {
	raws []models.RawRecord
	err  error
}

// Refresh runs one full three-source fetch and applies it unless a newer
// fetch has already landed. A failing source contributes no records; it
// never fails the refresh.
func (m *Merger) Refresh(ctx context.Context) (Result, error) {
	gen := m.store.Begin()
	fetchedAt := m.now()

	results := make([]fetchResult, len(models.Sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range models.Sources {
		g.Go(func() error {
			start := time.Now()
			raws, err := m.client.List(gctx, src)
			if m.metrics != nil {
				m.metrics.ObserveFetch(string(src), time.Since(start), err)
			}
			results[i] = fetchResult{raws: raws, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{Generation: gen}, err
	}

	batches := make(map[models.Source][]models.RawRecord, len(models.Sources))
	res := Result{Generation: gen}

	for i, src := range models.Sources {
		r := results[i]
		if r.err != nil {
			m.logger.Error(ctx, "source fetch failed", "source", string(src), "error", r.err)
			res.Failed = append(res.Failed, src)
			continue
		}
		batches[src] = r.raws
		if n := countMalformed(r.raws); n > 0 {
			m.logger.Warn(ctx, "unparseable dates ignored", "source", string(src), "fields", n, "generation", gen)
		}
		m.saveCache(ctx, src, r.raws, fetchedAt)
	}

	merged, decryptFailed := Merge(batches, m.dec)
	if decryptFailed > 0 {
		m.logger.Warn(ctx, "signature decrypt failed", "count", decryptFailed, "generation", gen)
	}

	res.Records = len(merged)
	res.Applied = m.store.Apply(gen, merged)

	if m.metrics != nil {
		m.metrics.ObserveApply(res.Applied, res.Records)
		m.metrics.ObserveDecryptFailures(decryptFailed)
	}

	if !res.Applied {
		m.logger.Debug(ctx, "stale fetch discarded", "generation", gen)
	}
	return res, nil
}

func countMalformed(raws []models.RawRecord) int {
	n := 0
	for _, r := range raws {
		n += r.MalformedTimes()
	}
	return n
}

func (m *Merger) saveCache(ctx context.Context, src models.Source, raws []models.RawRecord, at time.Time) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Save(ctx, src, raws, at); err != nil {
		m.logger.Warn(ctx, "snapshot cache save failed", "source", string(src), "error", err)
	}
}

// Warm seeds the store from the cached batches so the desk has something
// to show before the first live fetch returns. Any live fetch supersedes it.
func (m *Merger) Warm(ctx context.Context) (bool, error) {
	if m.cache == nil || m.store.Loaded() {
		return false, nil
	}

	batches, err := m.cache.LoadAll(ctx)
	if err != nil {
		return false, err
	}
	if len(batches) == 0 {
		return false, nil
	}

	merged, _ := Merge(batches, m.dec)
	applied := m.store.Seed(merged)

	m.logger.Info(ctx, "warm start from cache", "records", len(merged), "applied", applied)
	return applied, nil
}
