// Package fakeapi serves a local stand-in for the remote /api/events
// endpoint. Responses are generated from a seed, so the same request always
// returns the same events.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v6"
)

const day = 24 * 60 * 60

var (
	crops    = []string{"Пшеница", "Царевица", "Слънчоглед", "Рапица", "Ечемик", "Лозя", "Ябълки"}
	statuses = []string{"planned", "in_progress", "completed"}
	places   = []string{"Север", "Юг", "Изток", "Запад", "Река", "Хълм", "Ливада"}
	products = []struct{ name, active string }{
		{"Актара 25 ВГ", "тиаметоксам 250 г/кг"},
		{"Дека ЕК", "делтаметрин 25 г/л"},
		{"Фалкон 460 ЕК", "спироксамин 250 г/л"},
		{"Раундъп", "глифозат 360 г/л"},
		{"Топсин М", "тиофанат-метил 500 г/кг"},
	}
)

type Options struct {
	// Seed makes the generated data reproducible.
	Seed int64
	// PerWindow is the number of events returned for every request.
	PerWindow int
	// Failures maps a 1-based request number to the HTTP status to answer with.
	Failures map[int]int
}

// Request is what the server saw for one call.
type Request struct {
	From          int64
	To            int64
	Size          string
	Authorization string
}

type Server struct {
	opts     Options
	mu       sync.Mutex
	requests []Request
}

func New(opts Options) *Server {
	if opts.PerWindow <= 0 {
		opts.PerWindow = 3
	}
	return &Server{opts: opts}
}

// Requests returns the calls received so far, in order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

type response struct {
	Status string `json:"status"`
	Data   data   `json:"data"`
}

type data struct {
	Items []Event `json:"items"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
}

// Event is the wire shape of one generated record.
type Event struct {
	ID        int       `json:"id"`
	StartDate int64     `json:"start_date"`
	EndDate   int64     `json:"end_date"`
	Block     Block     `json:"block"`
	Area      float64   `json:"area"`
	Crop      string    `json:"crop"`
	Status    string    `json:"status"`
	Products  []Product `json:"products"`
}

type Block struct {
	Name     string   `json:"name"`
	Centroid Centroid `json:"centroid"`
}

type Centroid struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type Product struct {
	Name          string `json:"name"`
	ActiveContent string `json:"active_content"`
	Dose          string `json:"dose"`
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/events" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	from, errFrom := strconv.ParseInt(q.Get("from"), 10, 64)
	to, errTo := strconv.ParseInt(q.Get("to"), 10, 64)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		From:          from,
		To:            to,
		Size:          q.Get("size"),
		Authorization: r.Header.Get("Authorization"),
	})
	n := len(s.requests)
	s.mu.Unlock()

	if status, ok := s.opts.Failures[n]; ok {
		writeJSON(w, status, map[string]string{"status": "error", "message": "injected failure"})
		return
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || strings.TrimSpace(auth[len("Bearer "):]) == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "unauthorized"})
		return
	}

	if errFrom != nil || errTo != nil || to <= from {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "invalid range"})
		return
	}

	items := Generate(s.opts.Seed, from, to, s.opts.PerWindow)
	writeJSON(w, http.StatusOK, response{
		Status: "success",
		Data:   data{Items: items, Total: len(items)},
	})
}

// Generate returns count events whose start falls in [from, to). The result
// depends only on the arguments.
func Generate(seed, from, to int64, count int) []Event {
	s := seed ^ from
	if s == 0 {
		// gofakeit picks a random seed for zero
		s = 1
	}
	f := gofakeit.New(s)
	span := to - from

	events := make([]Event, 0, count)
	for i := 0; i < count; i++ {
		start := from + int64(f.Float64Range(0, 1)*float64(span))
		if start >= to {
			start = to - 1
		}
		ev := Event{
			ID:        int(from%100000)*100 + i,
			StartDate: start,
			EndDate:   start + int64(f.Number(0, 2))*day + int64(f.Number(1, 12))*3600,
			Block: Block{
				Name: fmt.Sprintf("Блок %s %d", f.RandomString(places), f.Number(1, 40)),
				Centroid: Centroid{
					Type: "Point",
					Coordinates: []float64{
						round(f.Float64Range(22.4, 28.6), 6),
						round(f.Float64Range(41.2, 44.2), 6),
					},
				},
			},
			Area:   round(f.Float64Range(0.5, 250), 2),
			Crop:   f.RandomString(crops),
			Status: f.RandomString(statuses),
		}

		for j, n := 0, f.Number(0, 3); j < n; j++ {
			p := products[f.Number(0, len(products)-1)]
			ev.Products = append(ev.Products, Product{
				Name:          p.name,
				ActiveContent: p.active,
				Dose:          strconv.FormatFloat(round(f.Float64Range(0.05, 3), 2), 'f', -1, 64) + " л/ха",
			})
		}
		events = append(events, ev)
	}
	return events
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
