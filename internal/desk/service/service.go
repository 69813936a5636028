// Package service assembles the security desk: it owns the snapshot, the
// polling and alert schedulers, and routes operator actions through the
// state machine.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/common"
	"github.com/dmitrijs2005/visitdesk/internal/desk/alerting"
	"github.com/dmitrijs2005/visitdesk/internal/desk/client"
	"github.com/dmitrijs2005/visitdesk/internal/desk/export"
	"github.com/dmitrijs2005/visitdesk/internal/desk/filter"
	"github.com/dmitrijs2005/visitdesk/internal/desk/journal"
	"github.com/dmitrijs2005/visitdesk/internal/desk/merger"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/dmitrijs2005/visitdesk/internal/desk/pass"
	"github.com/dmitrijs2005/visitdesk/internal/desk/scheduler"
	"github.com/dmitrijs2005/visitdesk/internal/desk/snapshot"
	"github.com/dmitrijs2005/visitdesk/internal/desk/workflow"
	"github.com/dmitrijs2005/visitdesk/internal/logging"
)

// Cipher encrypts new signatures and decrypts stored ones.
type Cipher interface {
	merger.Decrypter
	workflow.Encrypter
}

// Metrics is the union of the observations made by the desk.
type Metrics interface {
	merger.Metrics
	workflow.Metrics
	SetOverdue(n int)
}

type Config struct {
	RefreshInterval time.Duration
	AlertInterval   time.Duration
	Operator        string
	// Location is used for date filters, pass times and consent expiry.
	Location *time.Location
}

// Deps are the collaborators of the desk. Cache, Journal, Exporter and
// Metrics are optional.
type Deps struct {
	Client   client.Client
	Cipher   Cipher
	Cache    merger.Cache
	Journal  journal.Store
	Exporter *export.Exporter
	Metrics  Metrics
	Logger   logging.Logger
	Clock    func() time.Time
}

type DeskService struct {
	cfg      Config
	client   client.Client
	store    *snapshot.Store
	merger   *merger.Merger
	machine  *workflow.Machine
	exporter *export.Exporter
	journal  journal.Store
	metrics  Metrics
	monitor  *alerting.Monitor
	board    *Board
	logger   logging.Logger
	now      func() time.Time

	refresher *scheduler.Scheduler
	alerter   *scheduler.Scheduler
}

func New(cfg Config, d Deps) *DeskService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Second
	}
	if cfg.AlertInterval <= 0 {
		cfg.AlertInterval = 30 * time.Second
	}
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := cfg.Location
	now := func() time.Time { return clock().In(loc) }

	s := &DeskService{
		cfg:      cfg,
		client:   d.Client,
		store:    snapshot.New(),
		exporter: d.Exporter,
		journal:  d.Journal,
		metrics:  d.Metrics,
		monitor:  alerting.NewMonitor(),
		logger:   d.Logger,
		now:      now,
	}

	mopts := []merger.Option{merger.WithClock(now)}
	if d.Cache != nil {
		mopts = append(mopts, merger.WithCache(d.Cache))
	}
	if d.Metrics != nil {
		mopts = append(mopts, merger.WithMetrics(d.Metrics))
	}
	s.merger = merger.New(d.Client, d.Cipher, s.store, d.Logger, mopts...)

	wopts := []workflow.Option{
		workflow.WithClock(now),
		workflow.WithRefresh(s.refreshAfterAction),
	}
	if cfg.Operator != "" {
		wopts = append(wopts, workflow.WithOperator(cfg.Operator))
	}
	if d.Journal != nil {
		wopts = append(wopts, workflow.WithJournal(d.Journal))
	}
	if d.Metrics != nil {
		wopts = append(wopts, workflow.WithMetrics(d.Metrics))
	}
	s.machine = workflow.New(d.Client, d.Cipher, d.Logger, wopts...)

	s.board = NewBoard(s.store, now)
	s.store.Subscribe(func(uint64) { s.recomputeBoard() })

	s.refresher = scheduler.New(scheduler.Config{
		Name:      "refresh",
		Interval:  cfg.RefreshInterval,
		Immediate: true,
		Overlap:   true,
	}, s.refreshTick, d.Logger)
	s.alerter = scheduler.New(scheduler.Config{
		Name:     "overdue-alert",
		Interval: cfg.AlertInterval,
	}, s.alertTick, d.Logger)

	return s
}

// Start seeds the snapshot from the cache and starts polling.
func (s *DeskService) Start(ctx context.Context) {
	if ok, err := s.merger.Warm(ctx); err != nil {
		s.logger.Warn(ctx, "warm start failed", "error", err)
	} else if ok {
		s.recomputeBoard()
	}
	s.refresher.Start(ctx)
	s.alerter.Start(ctx)
}

// Stop halts both schedulers and waits for in-flight runs.
func (s *DeskService) Stop() {
	s.refresher.Stop()
	s.alerter.Stop()
}

func (s *DeskService) refreshTick(ctx context.Context) {
	if _, err := s.merger.Refresh(ctx); err != nil {
		s.logger.Debug(ctx, "refresh aborted", "error", err)
	}
}

func (s *DeskService) refreshAfterAction(ctx context.Context) {
	if _, err := s.merger.Refresh(ctx); err != nil {
		s.logger.Warn(ctx, "refresh after action failed", "error", err)
	}
}

func (s *DeskService) alertTick(ctx context.Context) {
	s.CheckOverdue(ctx)
}

// CheckOverdue re-evaluates overdue records against the current time and
// refreshes the board so the removal affordance appears.
func (s *DeskService) CheckOverdue(ctx context.Context) []string {
	overdue, fresh := s.monitor.Evaluate(s.store.Records(), s.now())
	for _, k := range fresh {
		s.logger.Warn(ctx, "record overdue", "record", k)
	}
	if s.metrics != nil {
		s.metrics.SetOverdue(len(overdue))
	}
	s.recomputeBoard()
	return overdue
}

func (s *DeskService) recomputeBoard() {
	if err := s.board.Recompute(); err != nil {
		s.logger.Warn(context.Background(), "board recompute failed", "error", err)
	}
}

// Refresh runs a fetch now.
func (s *DeskService) Refresh(ctx context.Context) (merger.Result, error) {
	return s.merger.Refresh(ctx)
}

// Board is the operator's filter state.
func (s *DeskService) Board() *Board { return s.board }

func (s *DeskService) Loaded() bool { return s.store.Loaded() }

func (s *DeskService) UpdatedAt() time.Time { return s.store.UpdatedAt() }

// Query evaluates c against the current snapshot.
func (s *DeskService) Query(c filter.Criteria) (View, error) {
	return Compute(s.store.Records(), c, s.now())
}

// Record looks up one record in the snapshot.
func (s *DeskService) Record(src models.Source, id string) (models.VisitRecord, error) {
	rec, ok := s.store.Find(src, id)
	if !ok {
		return models.VisitRecord{}, fmt.Errorf("%w: %s/%s", common.ErrorNotFound, src, id)
	}
	return rec, nil
}

func (s *DeskService) execute(ctx context.Context, src models.Source, id string, a workflow.Action, pre workflow.Preconditions) (workflow.Result, error) {
	rec, err := s.Record(src, id)
	if err != nil {
		return workflow.Result{}, err
	}
	return s.machine.Execute(ctx, workflow.Request{Action: a, Record: rec, Pre: pre})
}

func (s *DeskService) Authorize(ctx context.Context, src models.Source, id string, consent bool, signature string) (workflow.Result, error) {
	return s.execute(ctx, src, id, workflow.ActionAuthorize, workflow.Preconditions{ConsentChecked: consent, Signature: signature})
}

func (s *DeskService) EditBadge(ctx context.Context, src models.Source, id, cardNo string) (workflow.Result, error) {
	return s.execute(ctx, src, id, workflow.ActionEditBadge, workflow.Preconditions{CardNo: cardNo})
}

func (s *DeskService) Checkout(ctx context.Context, src models.Source, id string, badgeSurrendered, hostApproved bool) (workflow.Result, error) {
	return s.execute(ctx, src, id, workflow.ActionCheckout, workflow.Preconditions{BadgeSurrendered: badgeSurrendered, HostApproved: hostApproved})
}

func (s *DeskService) Remove(ctx context.Context, src models.Source, id string, confirmed bool, reason string) (workflow.Result, error) {
	return s.execute(ctx, src, id, workflow.ActionRemove, workflow.Preconditions{Confirmed: confirmed, Reason: reason})
}

// PassHTML renders the printable pass of a checked-in record.
func (s *DeskService) PassHTML(ctx context.Context, src models.Source, id string) ([]byte, error) {
	res, err := s.execute(ctx, src, id, workflow.ActionPrintPass, workflow.Preconditions{})
	if err != nil {
		return nil, err
	}
	return pass.Render(res.Record, s.cfg.Location)
}

// Consent returns the consent text to show before authorizing.
func (s *DeskService) Consent(src models.Source, id string) (pass.Consent, error) {
	rec, err := s.Record(src, id)
	if err != nil {
		return pass.Consent{}, err
	}
	return pass.NewConsent(rec.Source, s.now()), nil
}

// Export writes the export view of c.
func (s *DeskService) Export(ctx context.Context, c filter.Criteria) (export.Report, error) {
	if s.exporter == nil {
		return export.Report{}, fmt.Errorf("%w: export is not configured", common.ErrorInternal)
	}
	v, err := s.Query(c)
	if err != nil {
		return export.Report{}, err
	}
	return s.exporter.Export(ctx, v.Export)
}

// ExportBoard exports the board's current export view and then resets its
// date range.
func (s *DeskService) ExportBoard(ctx context.Context) (export.Report, error) {
	if s.exporter == nil {
		return export.Report{}, fmt.Errorf("%w: export is not configured", common.ErrorInternal)
	}
	if err := s.board.Recompute(); err != nil {
		return export.Report{}, err
	}
	rep, err := s.exporter.Export(ctx, s.board.View().Export)
	if err != nil {
		return export.Report{}, err
	}
	s.board.ResetRange()
	return rep, nil
}

// Journal lists recorded actions, newest first.
func (s *DeskService) Journal(ctx context.Context, q journal.Query) ([]journal.Entry, error) {
	if s.journal == nil {
		return []journal.Entry{}, nil
	}
	return s.journal.List(ctx, q)
}
