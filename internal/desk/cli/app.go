package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/export"
	"github.com/dmitrijs2005/visitdesk/internal/desk/journal"
	"github.com/dmitrijs2005/visitdesk/internal/desk/merger"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/dmitrijs2005/visitdesk/internal/desk/pass"
	"github.com/dmitrijs2005/visitdesk/internal/desk/service"
	"github.com/dmitrijs2005/visitdesk/internal/desk/workflow"
)

const inputTimeLayout = "2006-01-02 15:04"

// Desk is the part of service.DeskService the console drives.
type Desk interface {
	Start(ctx context.Context)
	Stop()
	Board() *service.Board
	Loaded() bool
	UpdatedAt() time.Time
	Refresh(ctx context.Context) (merger.Result, error)
	Record(src models.Source, id string) (models.VisitRecord, error)
	Authorize(ctx context.Context, src models.Source, id string, consent bool, signature string) (workflow.Result, error)
	EditBadge(ctx context.Context, src models.Source, id, cardNo string) (workflow.Result, error)
	Checkout(ctx context.Context, src models.Source, id string, badgeSurrendered, hostApproved bool) (workflow.Result, error)
	Remove(ctx context.Context, src models.Source, id string, confirmed bool, reason string) (workflow.Result, error)
	PassHTML(ctx context.Context, src models.Source, id string) ([]byte, error)
	Consent(src models.Source, id string) (pass.Consent, error)
	ExportBoard(ctx context.Context) (export.Report, error)
	RegisterAdhoc(ctx context.Context, visitors []service.AdhocVisitor) (int, error)
	Journal(ctx context.Context, q journal.Query) ([]journal.Entry, error)
}

var _ Desk = (*service.DeskService)(nil)

type App struct {
	desk    Desk
	reader  *bufio.Reader
	out     io.Writer
	outDir  string
	loc     *time.Location
	scanner *bufio.Scanner
}

type Option func(*App)

// WithIO replaces stdin/stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.reader = bufio.NewReader(in)
		a.out = out
	}
}

// WithOutputDir is where passes (and exports without a configured
// directory) are written.
func WithOutputDir(dir string) Option { return func(a *App) { a.outDir = dir } }

func WithLocation(loc *time.Location) Option { return func(a *App) { a.loc = loc } }

func NewApp(d Desk, opts ...Option) *App {
	a := &App{
		desk:   d,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		outDir: ".",
		loc:    time.Local,
	}
	for _, o := range opts {
		o(a)
	}
	a.scanner = bufio.NewScanner(&lineFeeder{r: a.reader})
	return a
}

// lineFeeder hands the scanner at most one line per Read, leaving the rest
// of the input in the shared reader for the prompt helpers.
type lineFeeder struct {
	r       *bufio.Reader
	pending []byte
}

func (f *lineFeeder) Read(p []byte) (int, error) {
	if len(f.pending) == 0 {
		line, err := f.r.ReadBytes('\n')
		if len(line) == 0 {
			return 0, err
		}
		f.pending = line
	}
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (a *App) getStatus() string {
	if !a.desk.Loaded() {
		return "(loading)"
	}
	c := a.desk.Board().Criteria()
	s := c.Status
	if c.Quick != "" && c.Quick != "none" {
		s += " " + string(c.Quick)
	} else if c.From != "" || c.To != "" {
		s += fmt.Sprintf(" %s..%s", c.From, c.To)
	}
	if c.Query != "" {
		s += fmt.Sprintf(" %q", c.Query)
	}
	return fmt.Sprintf("(%s)", s)
}

// Run starts the desk and blocks in the REPL until the operator exits.
func (a *App) Run(ctx context.Context) {
	a.desk.Start(ctx)
	defer a.desk.Stop()

	printlnFn("Security desk console (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.scanner)
}
