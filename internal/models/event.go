package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Event is one agricultural activity record returned by /api/events.
type Event struct {
	StartDate Timestamp `json:"start_date"`
	EndDate   Timestamp `json:"end_date"`
	Block     *Block    `json:"block"`
	Area      Text      `json:"area"`
	Crop      Text      `json:"crop"`
	Status    Text      `json:"status"`
	Products  []Product `json:"products"`
}

// Block is a named field with a geographic centroid.
type Block struct {
	Name     Text      `json:"name"`
	Centroid *Centroid `json:"centroid"`
}

// Centroid is a GeoJSON-like point. Coordinate order is whatever the API sends.
type Centroid struct {
	Type        Text   `json:"type"`
	Coordinates []Text `json:"coordinates"`
}

// Product is an agrochemical applied during an event.
type Product struct {
	Name          Text `json:"name"`
	ActiveContent Text `json:"active_content"`
	Dose          Text `json:"dose"`
}

// BlockName returns the block name or "" when the event has no block.
func (e Event) BlockName() string {
	if e.Block == nil {
		return ""
	}
	return e.Block.Name.String()
}

// Coordinates returns the centroid coordinates, possibly nil.
func (e Event) Coordinates() []Text {
	if e.Block == nil || e.Block.Centroid == nil {
		return nil
	}
	return e.Block.Centroid.Coordinates
}

// Text is a scalar JSON value kept as text. Strings are unquoted, numbers and
// booleans keep their literal form, null and missing fields are empty.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		*t = Text(b)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Timestamp is a Unix timestamp in seconds. The API sends numbers, sometimes
// numeric strings; anything else leaves Valid false instead of failing the decode.
type Timestamp struct {
	Unix  int64
	Valid bool
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	*ts = Timestamp{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil
		}
		*ts = Timestamp{Unix: n, Valid: true}
		return nil
	}

	if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		*ts = Timestamp{Unix: n, Valid: true}
		return nil
	}
	if f, err := strconv.ParseFloat(string(b), 64); err == nil {
		*ts = Timestamp{Unix: int64(f), Valid: true}
	}
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if !ts.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(ts.Unix, 10)), nil
}

// At returns a valid Timestamp for the given Unix seconds.
func At(unix int64) Timestamp {
	return Timestamp{Unix: unix, Valid: true}
}
