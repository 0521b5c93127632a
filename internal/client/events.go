package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/agrotrace/bfsa-extractor/internal/models"
)

const (
	eventsPath = "/api/events"

	defaultTimeout   = 60 * time.Second
	defaultPageSize  = 1000
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

var (
	// ErrUnexpectedStatus matches any *UnexpectedStatusError via errors.Is.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrPayloadStatus means the API answered 200 but did not report success.
	ErrPayloadStatus = errors.New("api did not report success")
	// ErrMalformedBody means the response body was not the expected JSON.
	ErrMalformedBody = errors.New("malformed response body")
)

// UnexpectedStatusError is returned for any HTTP status other than 200.
type UnexpectedStatusError struct {
	StatusCode int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func (e *UnexpectedStatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// FetchResult is the outcome of one request for a window. Err is nil on
// success; Events may still be empty when the period has no records.
type FetchResult struct {
	Window     models.Window
	Events     []models.Event
	StatusCode int
	Err        error
}

// OK reports whether the request succeeded.
func (r FetchResult) OK() bool { return r.Err == nil }

// EventsClient holds the authenticated HTTP session against the events API.
type EventsClient struct {
	baseURL   string
	token     string
	userAgent string
	pageSize  int
	client    *http.Client
}

// Option configures an EventsClient.
type Option func(*EventsClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *EventsClient) { c.client.Timeout = d }
}

// WithUserAgent overrides the browser-like user agent.
func WithUserAgent(ua string) Option {
	return func(c *EventsClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithPageSize sets the size query parameter.
func WithPageSize(n int) Option {
	return func(c *EventsClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *EventsClient) { c.client = hc }
}

// NewEventsClient creates a client for baseURL authenticated with token.
func NewEventsClient(baseURL, token string, opts ...Option) *EventsClient {
	c := &EventsClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		userAgent: defaultUserAgent,
		pageSize:  defaultPageSize,
		client:    newHTTPClient(defaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// BaseURL returns the API root the client talks to.
func (c *EventsClient) BaseURL() string { return c.baseURL }

type eventsResponse struct {
	Status string              `json:"status"`
	Data   *eventsPageEnvelope `json:"data"`
}

type eventsPageEnvelope struct {
	Items []models.Event `json:"items"`
}

// FetchEvents requests all events whose span falls in w. It never returns an
// error separately: failures are carried by the result.
func (c *EventsClient) FetchEvents(ctx context.Context, w models.Window) FetchResult {
	res := FetchResult{Window: w}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.eventsURL(w), http.NoBody)
	if err != nil {
		res.Err = err
		return res
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", c.baseURL+"/")

	resp, err := c.client.Do(req)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		res.Err = &UnexpectedStatusError{StatusCode: resp.StatusCode}
		return res
	}

	var body eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrMalformedBody, err)
		return res
	}

	if body.Status != "success" || body.Data == nil {
		res.Err = fmt.Errorf("%w: status %q", ErrPayloadStatus, body.Status)
		return res
	}

	res.Events = body.Data.Items
	if res.Events == nil {
		res.Events = []models.Event{}
	}
	return res
}

func (c *EventsClient) eventsURL(w models.Window) string {
	q := url.Values{}
	q.Set("from", strconv.FormatInt(w.From.Unix(), 10))
	q.Set("to", strconv.FormatInt(w.To.Unix(), 10))
	q.Set("all", "1")
	q.Set("page", "0")
	q.Set("size", strconv.Itoa(c.pageSize))
	return c.baseURL + eventsPath + "?" + q.Encode()
}
