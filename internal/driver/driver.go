// Package driver runs the interactive session: it asks the operator for a
// token and a period, validates them and hands over to the extractor.
package driver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agrotrace/bfsa-extractor/internal/client"
	"github.com/agrotrace/bfsa-extractor/internal/models"
	"github.com/agrotrace/bfsa-extractor/pkg/output"
)

const (
	portalURL  = "https://epord.bfsa.bg/"
	dateLayout = time.DateOnly
)

var (
	ErrEmptyToken    = errors.New("empty token")
	ErrInvalidDate   = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvertedRange = errors.New("start date must be before end date")
)

// RunFunc performs the extraction for a validated session.
type RunFunc func(ctx context.Context, token string, r models.DateRange) error

// Driver reads answers line by line from in.
type Driver struct {
	in  *bufio.Reader
	out *output.Printer
	run RunFunc
	loc *time.Location
	now func() time.Time
	log *zap.Logger
}

type Option func(*Driver)

// WithLocation sets the zone the entered dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(d *Driver) {
		if loc != nil {
			d.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(d *Driver) { d.log = log }
}

func New(in io.Reader, out *output.Printer, run RunFunc, opts ...Option) *Driver {
	d := &Driver{
		in:  bufio.NewReader(in),
		out: out,
		run: run,
		loc: time.Local,
		now: time.Now,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run drives one session. Invalid input ends the session early with a
// message; errors and panics from the extraction are printed. Run returns nil
// in all of those cases; only a cancelled context is returned.
func (d *Driver) Run(ctx context.Context) error {
	d.out.Plain("")
	d.out.Info("Моля, въведете вашия токен за удостоверяване:")
	d.out.Plain("1. Отидете на %s", portalURL)
	d.out.Plain("2. Влезте в акаунта си")
	d.out.Plain("3. Натиснете F12 за да отворите Developer Tools")
	d.out.Plain("4. Отидете на раздела Network")
	d.out.Plain("5. Използвайте филтъра за дати на сайта")
	d.out.Plain("6. Намерете някой API заявка и копирайте 'Authorization' хедъра")
	d.out.Plain("7. Поставете вашия токен тук (започва с 'eyJ...'):")

	token, err := ValidateToken(d.prompt("Токен: "))
	if err != nil {
		d.out.Error("Не е предоставен токен. Излизане.")
		return nil
	}
	d.checkToken(token)

	d.out.Plain("")
	d.out.Info("Моля, въведете период за извличане на данни:")
	d.out.Plain("   Формат: YYYY-MM-DD (например: 2024-01-01)")
	start := d.prompt("Начална дата (YYYY-MM-DD): ")
	end := d.prompt("Крайна дата (YYYY-MM-DD): ")

	r, err := ParseRange(start, end, d.loc)
	switch {
	case errors.Is(err, ErrInvalidDate):
		d.out.Error("Невалиден формат на датата! Използвайте YYYY-MM-DD")
		return nil
	case errors.Is(err, ErrInvertedRange):
		d.out.Error("Началната дата трябва да е преди крайната дата!")
		return nil
	}

	d.out.Plain("")
	d.out.Info("Период: %s до %s", start, end)
	d.out.Info("Това може да отнеме няколко минути...")
	d.out.Plain("")
	d.prompt("Натиснете Enter за да започнете извличането...")

	if err := d.invoke(ctx, token, r); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.log.Error("extraction failed", zap.Error(err), zap.Stack("stacktrace"))
		d.out.Plain("")
		d.out.Error("Грешка: %v", err)
		if chain := causes(err); chain != "" {
			d.out.Trace(chain)
		}
	}

	d.out.Plain("")
	d.prompt("Натиснете Enter за изход...")
	return nil
}

func (d *Driver) invoke(ctx context.Context, token string, r models.DateRange) (err error) {
	defer func() {
		if p := recover(); p != nil {
			d.log.Error("extraction panicked", zap.Any("panic", p))
			d.out.Trace(string(debug.Stack()))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return d.run(ctx, token, r)
}

// causes lists the wrapped errors below err, one per line, outermost first.
func causes(err error) string {
	var b strings.Builder
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(&b, "  причина: %v (%T)\n", e, e)
	}
	return b.String()
}

func (d *Driver) checkToken(token string) {
	info := client.InspectToken(token, d.now())
	switch {
	case !info.IsJWT:
		d.out.Warn("Токенът не изглежда като JWT (очаква се да започва с 'eyJ...')")
	case info.Expired:
		d.out.Warn("Токенът е изтекъл на %s, заявките вероятно ще бъдат отказани",
			info.ExpiresAt.In(d.loc).Format("02.01.2006 15:04"))
	}
}

// prompt prints label and returns the next input line, trimmed. End of
// input reads as an empty answer.
func (d *Driver) prompt(label string) string {
	fmt.Fprint(d.out.Out(), label)
	line, _ := d.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// ValidateToken trims the token and strips a pasted "Bearer " prefix.
func ValidateToken(token string) (string, error) {
	token = client.NormalizeToken(token)
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

// ParseRange parses two YYYY-MM-DD dates at midnight in loc. The start must
// be strictly before the end.
func ParseRange(start, end string, loc *time.Location) (models.DateRange, error) {
	from, err := parseDate(start, loc)
	if err != nil {
		return models.DateRange{}, err
	}
	to, err := parseDate(end, loc)
	if err != nil {
		return models.DateRange{}, err
	}
	if !from.Before(to) {
		return models.DateRange{}, fmt.Errorf("%s >= %s: %w", start, end, ErrInvertedRange)
	}
	return models.DateRange{Start: from, End: to}, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if len(s) != len(dateLayout) {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrInvalidDate)
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrInvalidDate)
	}
	return t, nil
}
