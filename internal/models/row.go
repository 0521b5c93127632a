package models

import (
	"math"
	"time"
)

// Column headers of the exported sheet, in order.
const (
	ColumnDate          = "Дата"
	ColumnBlock         = "Блок"
	ColumnArea          = "Площ"
	ColumnCrop          = "Култура"
	ColumnStatus        = "Статус"
	ColumnProduct       = "Препарат"
	ColumnActiveContent = "Активно вещество"
	ColumnDose          = "Доза"
	ColumnGPS           = "GPS"
)

// Headers is the ordered header row of the export.
var Headers = []string{
	ColumnDate,
	ColumnBlock,
	ColumnArea,
	ColumnCrop,
	ColumnStatus,
	ColumnProduct,
	ColumnActiveContent,
	ColumnDose,
	ColumnGPS,
}

// Row is one event/product pairing, flattened for the spreadsheet.
type Row struct {
	Date          string `json:"date" yaml:"date"`
	Block         string `json:"block" yaml:"block"`
	Area          string `json:"area" yaml:"area"`
	Crop          string `json:"crop" yaml:"crop"`
	Status        string `json:"status" yaml:"status"`
	Product       string `json:"product" yaml:"product"`
	ActiveContent string `json:"active_content" yaml:"active_content"`
	Dose          string `json:"dose" yaml:"dose"`
	GPS           string `json:"gps" yaml:"gps"`
}

// Values returns the cells of r in Headers order.
func (r Row) Values() []string {
	return []string{
		r.Date,
		r.Block,
		r.Area,
		r.Crop,
		r.Status,
		r.Product,
		r.ActiveContent,
		r.Dose,
		r.GPS,
	}
}

// DateRange is the validated period requested by the operator. Start is
// always strictly before End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Window is one half-open batch interval [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Days returns the length of the window in whole days.
func (w Window) Days() int {
	return int(math.Round(w.To.Sub(w.From).Hours() / 24))
}
