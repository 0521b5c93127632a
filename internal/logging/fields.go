package logging

import (
	"time"

	"go.uber.org/zap"
)

// Common field names for consistent logging.
const (
	FieldRunID      = "run_id"
	FieldBatch      = "batch"
	FieldWindowFrom = "window_from"
	FieldWindowTo   = "window_to"
	FieldStatus     = "status"
	FieldEvents     = "events"
	FieldRows       = "rows"
	FieldPath       = "path"
	FieldURL        = "url"
	FieldDuration   = "duration_ms"
)

// Batch returns a field for the 1-based batch number.
func Batch(n int) zap.Field {
	return zap.Int(FieldBatch, n)
}

// Window returns the two fields describing a batch window.
func Window(from, to time.Time) []zap.Field {
	return []zap.Field{
		zap.String(FieldWindowFrom, from.Format(time.DateOnly)),
		zap.String(FieldWindowTo, to.Format(time.DateOnly)),
	}
}

// Status returns a field for an HTTP status code.
func Status(code int) zap.Field {
	return zap.Int(FieldStatus, code)
}

// Events returns a field for an event count.
func Events(n int) zap.Field {
	return zap.Int(FieldEvents, n)
}

// Rows returns a field for a row count.
func Rows(n int) zap.Field {
	return zap.Int(FieldRows, n)
}

// Path returns a field for a filesystem path.
func Path(p string) zap.Field {
	return zap.String(FieldPath, p)
}

// URL returns a field for a request URL.
func URL(u string) zap.Field {
	return zap.String(FieldURL, u)
}

// Duration returns a field for an elapsed duration in milliseconds.
func Duration(d time.Duration) zap.Field {
	return zap.Int64(FieldDuration, d.Milliseconds())
}
