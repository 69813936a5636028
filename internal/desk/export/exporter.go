package export

import (
	"context"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/dmitrijs2005/visitdesk/internal/filex"
	"github.com/dmitrijs2005/visitdesk/internal/logging"
)

// Metrics receives one observation per export.
type Metrics interface {
	ObserveExport(rows int, err error)
}

// Report is what the operator is told after an export.
type Report struct {
	FileName   string
	Path       string
	Count      int
	ArchiveKey string
	Data       []byte
}

type Exporter struct {
	dir      string
	format   Format
	archiver Archiver
	metrics  Metrics
	logger   logging.Logger
	now      func() time.Time
}

type Option func(*Exporter)

// WithDir makes Export also write the workbook into dir.
func WithDir(dir string) Option { return func(e *Exporter) { e.dir = dir } }

func WithArchiver(a Archiver) Option { return func(e *Exporter) { e.archiver = a } }

func WithMetrics(m Metrics) Option { return func(e *Exporter) { e.metrics = m } }

func WithClock(now func() time.Time) Option { return func(e *Exporter) { e.now = now } }

func New(f Format, logger logging.Logger, opts ...Option) *Exporter {
	e := &Exporter{format: f, logger: logger, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Export renders records, saves them to the export directory if one is
// configured and archives a copy. Archive failures are logged only.
func (e *Exporter) Export(ctx context.Context, records []models.VisitRecord) (Report, error) {
	now := e.now()
	rep := Report{FileName: FileName(now), Count: len(records)}

	data, err := Render(records, e.format)
	if err != nil {
		e.observe(0, err)
		return Report{}, err
	}
	rep.Data = data

	if e.dir != "" {
		dir, err := filex.EnsureDir(e.dir)
		if err != nil {
			e.observe(0, err)
			return Report{}, err
		}
		path, err := filex.WriteFileAtomic(dir, rep.FileName, data)
		if err != nil {
			e.observe(0, err)
			return Report{}, err
		}
		rep.Path = path
	}

	if e.archiver != nil {
		key, err := e.archiver.Archive(ctx, rep.FileName, data, now)
		if err != nil {
			e.logger.Warn(ctx, "export archive failed", "file", rep.FileName, "error", err)
		} else {
			rep.ArchiveKey = key
		}
	}

	e.observe(rep.Count, nil)
	e.logger.Info(ctx, "records exported", "file", rep.FileName, "count", rep.Count)
	return rep, nil
}

func (e *Exporter) observe(rows int, err error) {
	if e.metrics != nil {
		e.metrics.ObserveExport(rows, err)
	}
}
