// Package spreadsheet writes flattened event rows to an .xlsx workbook.
package spreadsheet

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/agrotrace/bfsa-extractor/internal/models"
)

const (
	DefaultSheetName      = "Събития"
	DefaultMaxColumnWidth = 50

	// widthPadding is added to the longest cell so text does not touch the border.
	widthPadding = 2
)

type Options struct {
	SheetName      string
	MaxColumnWidth int
}

func (o Options) withDefaults() Options {
	if o.SheetName == "" {
		o.SheetName = DefaultSheetName
	}
	if o.MaxColumnWidth <= 0 {
		o.MaxColumnWidth = DefaultMaxColumnWidth
	}
	return o
}

// Writer writes with fixed options. It satisfies the extractor's sheet writer.
type Writer struct {
	Options Options
}

func (w Writer) Write(rows []models.Row, path string) error {
	return Write(rows, path, w.Options)
}

// Write creates a single-sheet workbook at path: header row frozen, one row
// per models.Row, columns sized to their longest cell up to MaxColumnWidth.
// A failed save may leave a partial file behind.
func Write(rows []models.Row, path string, opts Options) (err error) {
	opts = opts.withDefaults()

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", cerr)
		}
	}()

	sheet := opts.SheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet %q: %w", sheet, err)
	}

	header := models.Headers
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := r.Values()
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	for i, width := range ColumnWidths(rows, opts.MaxColumnWidth) {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(width)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// ColumnWidths returns one width per header: the longest cell in runes,
// header included, plus padding, capped at max.
func ColumnWidths(rows []models.Row, max int) []int {
	widths := make([]int, len(models.Headers))
	for i, h := range models.Headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, r := range rows {
		for i, v := range r.Values() {
			if n := utf8.RuneCountInString(v); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		widths[i] += widthPadding
		if widths[i] > max {
			widths[i] = max
		}
	}
	return widths
}
