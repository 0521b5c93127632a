package extractor

import (
	"time"

	"github.com/agrotrace/bfsa-extractor/internal/models"
)

// bgDate is DD.MM.YYYY.
const bgDate = "02.01.2006"

// Flatten turns an event into one row per product, or a single row with
// blank product fields when it has none. Event-level fields repeat on every row.
func Flatten(ev models.Event, loc *time.Location) []models.Row {
	base := models.Row{
		Date:   FormatDateRange(ev.StartDate, ev.EndDate, loc),
		Block:  ev.BlockName(),
		Area:   ev.Area.String(),
		Crop:   ev.Crop.String(),
		Status: ev.Status.String(),
		GPS:    FormatGPS(ev.Coordinates()),
	}

	if len(ev.Products) == 0 {
		return []models.Row{base}
	}

	rows := make([]models.Row, 0, len(ev.Products))
	for _, p := range ev.Products {
		r := base
		r.Product = p.Name.String()
		r.ActiveContent = p.ActiveContent.String()
		r.Dose = p.Dose.String()
		rows = append(rows, r)
	}
	return rows
}

// FormatDateRange renders "DD.MM.YYYY - DD.MM.YYYY". If either end is
// missing or out of range the result is empty, never half a range.
func FormatDateRange(start, end models.Timestamp, loc *time.Location) string {
	from, ok := FormatDate(start, loc)
	if !ok {
		return ""
	}
	to, ok := FormatDate(end, loc)
	if !ok {
		return ""
	}
	return from + " - " + to
}

// FormatDate renders ts as DD.MM.YYYY in loc.
func FormatDate(ts models.Timestamp, loc *time.Location) (string, bool) {
	if !ts.Valid {
		return "", false
	}
	if loc == nil {
		loc = time.Local
	}
	t := time.Unix(ts.Unix, 0).In(loc)
	if t.Year() < 1 || t.Year() > 9999 {
		return "", false
	}
	return t.Format(bgDate), true
}

// FormatGPS joins the first two centroid coordinates in the order the API
// sent them. Fewer than two coordinates give "".
func FormatGPS(coords []models.Text) string {
	if len(coords) < 2 {
		return ""
	}
	return coords[0].String() + ", " + coords[1].String()
}
