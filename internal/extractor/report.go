package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/agrotrace/bfsa-extractor/internal/logging"
	"github.com/agrotrace/bfsa-extractor/internal/models"
	"github.com/agrotrace/bfsa-extractor/pkg/output"
)

// Summary holds the statistics printed after a successful export.
type Summary struct {
	Rows       int    `json:"rows"`
	Blocks     int    `json:"unique_blocks"`
	Crops      int    `json:"unique_crops"`
	Products   int    `json:"unique_products"`
	WithGPS    int    `json:"rows_with_gps"`
	SampleDate string `json:"sample_date"`
}

// Summarize counts rows and distinct values. An empty string is a value
// like any other, so events without products add one to Products.
func Summarize(rows []models.Row) Summary {
	blocks := make(map[string]struct{})
	crops := make(map[string]struct{})
	products := make(map[string]struct{})

	s := Summary{Rows: len(rows)}
	for _, r := range rows {
		blocks[r.Block] = struct{}{}
		crops[r.Crop] = struct{}{}
		products[r.Product] = struct{}{}
		if r.GPS != "" {
			s.WithGPS++
		}
	}
	s.Blocks = len(blocks)
	s.Crops = len(crops)
	s.Products = len(products)
	if len(rows) > 0 {
		s.SampleDate = rows[0].Date
	}
	return s
}

// Report is the outcome of CreateReport.
type Report struct {
	Range         models.DateRange `json:"-"`
	Path          string           `json:"path,omitempty"`
	Written       bool             `json:"written"`
	WriteErr      error            `json:"-"`
	Summary       Summary          `json:"summary"`
	Batches       int              `json:"batches"`
	FailedBatches int              `json:"failed_batches"`
}

// ReportFilename returns BFSA_<label>_<YYYYMMDD_HHMM>.xlsx.
func ReportFilename(label string, now time.Time) string {
	return fmt.Sprintf("BFSA_%s_%s.xlsx", label, now.Format("20060102_1504"))
}

// CreateReport extracts r, writes the spreadsheet when there is at least one
// row and prints the summary. A failed write is reported on the console and
// in Report.WriteErr; it is not returned as an error.
func (e *Extractor) CreateReport(ctx context.Context, r models.DateRange) (*Report, error) {
	e.out.Info("Започва извличането на данни...")
	e.out.Info("Период: %s до %s", dateOnly(r.Start), dateOnly(r.End))
	e.out.Info("Това може да отнеме няколко минути...")
	e.out.Plain("")

	x, err := e.ExtractRows(ctx, r.Start, r.End)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Range:         r,
		Batches:       len(x.Batches),
		FailedBatches: x.FailedBatches(),
	}
	if rep.FailedBatches > 0 {
		e.out.Warn("%d от %d партиди не бяха извлечени, липсващите периоди не са в отчета",
			rep.FailedBatches, rep.Batches)
	}

	if len(x.Rows) == 0 {
		e.out.Error("Не са намерени данни за този период")
		return rep, nil
	}

	rep.Path = filepath.Join(e.outputDir, ReportFilename(e.label, e.now()))

	e.out.Plain("")
	e.out.Info("Запазване във Excel файл...")
	if err := e.writer.Write(x.Rows, rep.Path); err != nil {
		rep.WriteErr = err
		e.log.Error("spreadsheet write failed", logging.Path(rep.Path), zap.Error(err))
		e.out.Error("Грешка при запазване на Excel: %v", err)
		e.out.Error("Неуспешно запазване на Excel файл")
		return rep, nil
	}
	rep.Written = true
	rep.Summary = Summarize(x.Rows)
	e.log.Info("report written", logging.Path(rep.Path), logging.Rows(len(x.Rows)))
	e.out.Success("Excel файл запазен: %s", rep.Path)

	e.printSummary(rep)
	return rep, nil
}

func (e *Extractor) printSummary(rep *Report) {
	if e.format == "json" {
		if err := e.out.JSON(rep); err != nil {
			e.log.Warn("failed to encode summary", zap.Error(err))
		}
		return
	}

	s := rep.Summary
	e.out.Plain("")
	e.out.Success("УСПЕШНО ЗАВЪРШВАНЕ!")
	e.out.Info("Файл: %s", rep.Path)
	e.out.Info("Общо редове: %d", s.Rows)
	e.out.Info("Период: %s до %s", dateOnly(rep.Range.Start), dateOnly(rep.Range.End))
	e.out.Plain("")

	table := output.NewTable([]string{"Статистика", "Стойност"})
	table.AddRow([]string{"Уникални блокове", strconv.Itoa(s.Blocks)})
	table.AddRow([]string{"Уникални култури", strconv.Itoa(s.Crops)})
	table.AddRow([]string{"Уникални препарати", strconv.Itoa(s.Products)})
	table.AddRow([]string{"Събития с GPS", strconv.Itoa(s.WithGPS)})
	table.AddRow([]string{"Пример за дата", s.SampleDate})
	table.Render(e.out.Out())
}
