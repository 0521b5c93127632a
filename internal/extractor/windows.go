package extractor

import (
	"time"

	"github.com/agrotrace/bfsa-extractor/internal/models"
)

// Windows splits [start, end) into consecutive half-open windows of at most
// days calendar days. Each window starts where the previous one ended.
func Windows(start, end time.Time, days int) []models.Window {
	if days < 1 {
		days = 1
	}

	var windows []models.Window
	for cur := start; cur.Before(end); {
		next := cur.AddDate(0, 0, days)
		if next.After(end) {
			next = end
		}
		windows = append(windows, models.Window{From: cur, To: next})
		cur = next
	}
	return windows
}
