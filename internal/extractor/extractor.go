// Package extractor drives batched retrieval of events, flattens them into
// spreadsheet rows and produces the report.
package extractor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/agrotrace/bfsa-extractor/internal/client"
	"github.com/agrotrace/bfsa-extractor/internal/logging"
	"github.com/agrotrace/bfsa-extractor/internal/models"
	"github.com/agrotrace/bfsa-extractor/internal/spreadsheet"
	"github.com/agrotrace/bfsa-extractor/pkg/output"
)

const (
	DefaultBatchDays  = 60
	DefaultBatchDelay = time.Second
	DefaultLabel      = "Събития"
)

// Policy decides what a failed batch does to the rest of the run.
type Policy int

const (
	// Lenient treats a failed batch as empty and keeps going.
	Lenient Policy = iota
	// Strict stops at the first failed batch.
	Strict
)

// ParsePolicy maps "lenient" and "strict" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return Lenient, fmt.Errorf("unknown failure policy %q", s)
	}
}

// Fetcher retrieves the events of one window.
type Fetcher interface {
	FetchEvents(ctx context.Context, w models.Window) client.FetchResult
}

// Pacer blocks until the next request may start.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SheetWriter persists rows to path.
type SheetWriter interface {
	Write(rows []models.Row, path string) error
}

// Extractor owns the fetcher for its whole lifetime. It is not safe for
// concurrent use; batches are always fetched one after another.
type Extractor struct {
	fetcher   Fetcher
	pacer     Pacer
	writer    SheetWriter
	loc       *time.Location
	batchDays int
	policy    Policy
	outputDir string
	label     string
	format    string
	now       func() time.Time
	log       *zap.Logger
	out       *output.Printer
}

type Option func(*Extractor)

// WithLocation sets the zone used for request bounds and rendered dates.
func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithBatchDays bounds the length of each request window.
func WithBatchDays(days int) Option {
	return func(e *Extractor) {
		if days > 0 {
			e.batchDays = days
		}
	}
}

// WithBatchDelay spaces consecutive requests at least d apart.
func WithBatchDelay(d time.Duration) Option {
	return func(e *Extractor) { e.pacer = NewPacer(d) }
}

// WithPacer replaces the request pacer.
func WithPacer(p Pacer) Option {
	return func(e *Extractor) { e.pacer = p }
}

func WithPolicy(p Policy) Option {
	return func(e *Extractor) { e.policy = p }
}

func WithSheetWriter(w SheetWriter) Option {
	return func(e *Extractor) { e.writer = w }
}

// WithOutput sets the directory and label used for the report file name.
func WithOutput(dir, label string) Option {
	return func(e *Extractor) {
		if dir != "" {
			e.outputDir = dir
		}
		if label != "" {
			e.label = label
		}
	}
}

// WithFormat selects how the summary is printed: "table" or "json".
func WithFormat(format string) Option {
	return func(e *Extractor) { e.format = format }
}

func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Extractor) { e.log = log }
}

func WithPrinter(p *output.Printer) Option {
	return func(e *Extractor) { e.out = p }
}

// New creates an Extractor reading from fetcher.
func New(fetcher Fetcher, opts ...Option) *Extractor {
	e := &Extractor{
		fetcher:   fetcher,
		pacer:     NewPacer(DefaultBatchDelay),
		writer:    spreadsheet.Writer{},
		loc:       time.Local,
		batchDays: DefaultBatchDays,
		policy:    Lenient,
		outputDir: ".",
		label:     DefaultLabel,
		format:    "table",
		now:       time.Now,
		log:       zap.NewNop(),
		out:       output.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewPacer returns a limiter admitting one request per delay. The first Wait
// returns at once. A zero delay never blocks.
func NewPacer(delay time.Duration) Pacer {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// BatchReport describes what one window contributed.
type BatchReport struct {
	Number     int
	Window     models.Window
	Events     int
	Rows       int
	StatusCode int
	Err        error
}

// Failed reports whether the request for this window failed.
func (b BatchReport) Failed() bool { return b.Err != nil }

// Extraction is the accumulated result of a run.
type Extraction struct {
	Rows    []models.Row
	Batches []BatchReport
}

// FailedBatches counts the windows whose request failed.
func (x *Extraction) FailedBatches() int {
	n := 0
	for _, b := range x.Batches {
		if b.Failed() {
			n++
		}
	}
	return n
}

// ExtractRows fetches [start, end) window by window and flattens every event.
// Under the Lenient policy a failed window contributes no rows; the returned
// error is then non-nil only when ctx ends the run.
func (e *Extractor) ExtractRows(ctx context.Context, start, end time.Time) (*Extraction, error) {
	e.out.Rule()
	e.out.Info("ИЗВЛИЧАНЕ НА ДАННИ ЗА EXCEL")
	e.out.Rule()

	x := &Extraction{Rows: []models.Row{}}

	for i, w := range Windows(start.In(e.loc), end.In(e.loc), e.batchDays) {
		// The first batch takes the limiter's initial token, so every later
		// batch starts at least one delay after the previous one.
		if err := e.pacer.Wait(ctx); err != nil {
			return x, fmt.Errorf("waiting for batch %d: %w", i+1, err)
		}

		batch := e.fetchBatch(ctx, i+1, w)
		if batch.Failed() {
			if err := ctx.Err(); err != nil {
				x.Batches = append(x.Batches, batch.report)
				return x, err
			}
			if e.policy == Strict {
				x.Batches = append(x.Batches, batch.report)
				return x, fmt.Errorf("batch %d (%s - %s): %w",
					batch.report.Number, dateOnly(w.From), dateOnly(w.To), batch.report.Err)
			}
		}

		x.Rows = append(x.Rows, batch.rows...)
		x.Batches = append(x.Batches, batch.report)
	}

	e.out.Plain("")
	e.out.Info("Общо редове в Excel: %d", len(x.Rows))
	e.log.Info("extraction finished",
		logging.Rows(len(x.Rows)),
		zap.Int("batches", len(x.Batches)),
		zap.Int("failed_batches", x.FailedBatches()))

	return x, nil
}

type batchResult struct {
	report BatchReport
	rows   []models.Row
}

func (b batchResult) Failed() bool { return b.report.Failed() }

func (e *Extractor) fetchBatch(ctx context.Context, n int, w models.Window) batchResult {
	log := e.log.With(append(logging.Window(w.From, w.To), logging.Batch(n))...)

	e.out.Info("Партида %d: %s до %s", n, dateOnly(w.From), dateOnly(w.To))

	started := time.Now()
	res := e.fetcher.FetchEvents(ctx, w)

	b := batchResult{report: BatchReport{
		Number:     n,
		Window:     w,
		StatusCode: res.StatusCode,
		Err:        res.Err,
	}}

	if !res.OK() {
		log.Warn("batch request failed",
			logging.Status(res.StatusCode),
			logging.Duration(time.Since(started)),
			zap.Error(res.Err))
		e.out.Error("Грешка при заявка: %v", res.Err)
		return b
	}

	for _, ev := range res.Events {
		b.rows = append(b.rows, Flatten(ev, e.loc)...)
	}
	b.report.Events = len(res.Events)
	b.report.Rows = len(b.rows)

	log.Debug("batch fetched",
		logging.Events(b.report.Events),
		logging.Rows(b.report.Rows),
		logging.Duration(time.Since(started)))
	e.out.Success("Партида %d завършена: %d събития обработени", n, b.report.Events)
	return b
}

func dateOnly(t time.Time) string {
	return t.Format(time.DateOnly)
}
