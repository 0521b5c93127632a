package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/agrotrace/bfsa-extractor/internal/client"
	"github.com/agrotrace/bfsa-extractor/internal/models"
	"github.com/agrotrace/bfsa-extractor/pkg/output"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

type session struct {
	calls  int
	token  string
	period models.DateRange
	out    bytes.Buffer
	errOut bytes.Buffer
}

func (s *session) driver(input string, run RunFunc) *Driver {
	color.NoColor = true
	if run == nil {
		run = func(ctx context.Context, token string, r models.DateRange) error {
			s.calls++
			s.token = token
			s.period = r
			return nil
		}
	}
	return New(strings.NewReader(input), output.New(&s.out, &s.errOut), run,
		WithLocation(time.UTC), WithClock(func() time.Time { return now }))
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantErr    error
	}{
		{name: "valid", start: "2024-01-01", end: "2024-02-01"},
		{name: "one day", start: "2024-01-01", end: "2024-01-02"},
		{name: "equal dates", start: "2024-01-01", end: "2024-01-01", wantErr: ErrInvertedRange},
		{name: "inverted", start: "2024-02-01", end: "2024-01-01", wantErr: ErrInvertedRange},
		{name: "not padded", start: "2024-1-1", end: "2024-02-01", wantErr: ErrInvalidDate},
		{name: "wrong order", start: "01-01-2024", end: "2024-02-01", wantErr: ErrInvalidDate},
		{name: "dotted", start: "2024-01-01", end: "01.02.2024", wantErr: ErrInvalidDate},
		{name: "impossible day", start: "2024-02-30", end: "2024-03-01", wantErr: ErrInvalidDate},
		{name: "empty", start: "", end: "2024-03-01", wantErr: ErrInvalidDate},
		{name: "trailing garbage", start: "2024-01-01x", end: "2024-03-01", wantErr: ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseRange(tt.start, tt.end, time.UTC)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, models.DateRange{}, r)
				return
			}
			require.NoError(t, err)
			assert.True(t, r.Start.Before(r.End))
			assert.Equal(t, tt.start, r.Start.Format(time.DateOnly))
			assert.Equal(t, tt.end, r.End.Format(time.DateOnly))
		})
	}
}

func TestParseRange_UsesLocation(t *testing.T) {
	sofia, err := time.LoadLocation("Europe/Sofia")
	require.NoError(t, err)

	r, err := ParseRange("2024-01-01", "2024-01-02", sofia)
	require.NoError(t, err)
	assert.Equal(t, int64(1704060000), r.Start.Unix(), "midnight in Sofia is 22:00 UTC")
}

func TestValidateToken(t *testing.T) {
	tok, err := ValidateToken("  Bearer eyJabc  ")
	require.NoError(t, err)
	assert.Equal(t, "eyJabc", tok)

	_, err = ValidateToken("   ")
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestRun_HappyPath(t *testing.T) {
	var s session
	token := signed(t, now.Add(time.Hour))
	d := s.driver(token+"\n2024-01-01\n2024-02-01\n\n\n", nil)

	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, 1, s.calls)
	assert.Equal(t, token, s.token)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s.period.Start)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), s.period.End)

	out := s.out.String()
	assert.Contains(t, out, "https://epord.bfsa.bg/")
	assert.Contains(t, out, "Период: 2024-01-01 до 2024-02-01")
	assert.Contains(t, out, "Натиснете Enter за да започнете извличането...")
	assert.Contains(t, out, "Натиснете Enter за изход...")
	assert.NotContains(t, out, "изтекъл")
	assert.Empty(t, s.errOut.String())
}

func TestRun_RejectsInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{name: "empty token", input: "\n2024-01-01\n2024-02-01\n", wantMsg: "Не е предоставен токен. Излизане."},
		{name: "end of input", input: "", wantMsg: "Не е предоставен токен. Излизане."},
		{name: "bad date", input: "tok\n2024/01/01\n2024-02-01\n", wantMsg: "Невалиден формат на датата! Използвайте YYYY-MM-DD"},
		{name: "inverted", input: "tok\n2024-02-01\n2024-01-01\n", wantMsg: "Началната дата трябва да е преди крайната дата!"},
		{name: "equal", input: "tok\n2024-02-01\n2024-02-01\n", wantMsg: "Началната дата трябва да е преди крайната дата!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s session
			d := s.driver(tt.input, nil)

			require.NoError(t, d.Run(context.Background()))
			assert.Zero(t, s.calls, "no work after invalid input")
			assert.Contains(t, s.errOut.String(), tt.wantMsg)
			assert.NotContains(t, s.out.String(), "Натиснете Enter за изход...")
		})
	}
}

func TestRun_ReportsRunError(t *testing.T) {
	var s session
	d := s.driver("tok\n2024-01-01\n2024-02-01\n\n\n", func(ctx context.Context, token string, r models.DateRange) error {
		return errors.New("boom")
	})

	require.NoError(t, d.Run(context.Background()))
	assert.Contains(t, s.errOut.String(), "Грешка: boom")
	assert.Contains(t, s.out.String(), "Натиснете Enter за изход...")
}

func TestRun_ReportsErrorChain(t *testing.T) {
	color.NoColor = true
	var out, errOut bytes.Buffer
	core, logs := observer.New(zapcore.ErrorLevel)

	run := func(ctx context.Context, token string, r models.DateRange) error {
		return fmt.Errorf("batch 2 (2024-03-01 - 2024-04-30): %w", &client.UnexpectedStatusError{StatusCode: 502})
	}
	d := New(strings.NewReader("tok\n2024-01-01\n2024-06-01\n\n\n"), output.New(&out, &errOut), run,
		WithLocation(time.UTC), WithLogger(zap.New(core)))

	require.NoError(t, d.Run(context.Background()))

	assert.Contains(t, errOut.String(), "Грешка: batch 2 (2024-03-01 - 2024-04-30): unexpected status 502")
	assert.Contains(t, errOut.String(), "причина: unexpected status 502 (*client.UnexpectedStatusError)")
	assert.Contains(t, out.String(), "Натиснете Enter за изход...")

	entries := logs.FilterMessage("extraction failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields["error"], "unexpected status 502")
	assert.Contains(t, fields["stacktrace"], "driver.(*Driver).Run")
}

func TestRun_RecoversPanic(t *testing.T) {
	var s session
	d := s.driver("tok\n2024-01-01\n2024-02-01\n\n\n", func(ctx context.Context, token string, r models.DateRange) error {
		panic("kaboom")
	})

	require.NoError(t, d.Run(context.Background()))
	errOut := s.errOut.String()
	assert.Contains(t, errOut, "Грешка: panic: kaboom")
	assert.Contains(t, errOut, "goroutine")
	assert.Contains(t, s.out.String(), "Натиснете Enter за изход...")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var s session
	d := s.driver("tok\n2024-01-01\n2024-02-01\n\n", func(ctx context.Context, token string, r models.DateRange) error {
		cancel()
		return ctx.Err()
	})

	assert.ErrorIs(t, d.Run(ctx), context.Canceled)
}

func TestRun_WarnsAboutToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantWarn string
	}{
		{name: "expired", token: signed(t, now.Add(-time.Hour)), wantWarn: "Токенът е изтекъл на 01.06.2024 11:00"},
		{name: "not a jwt", token: "plain-token", wantWarn: "Токенът не изглежда като JWT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s session
			d := s.driver(tt.token+"\n2024-01-01\n2024-02-01\n\n\n", nil)

			require.NoError(t, d.Run(context.Background()))
			assert.Contains(t, s.out.String(), tt.wantWarn)
			assert.Equal(t, 1, s.calls, "a suspicious token only warns")
		})
	}
}
