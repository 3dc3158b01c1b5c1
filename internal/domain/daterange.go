package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the UTC layout records use for dates.
const TimestampLayout = "2006-01-02 15:04:05.000Z"

// DayLayout is the calendar-day layout used for filters and day keys.
const DayLayout = "2006-01-02"

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04:05Z",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	DayLayout,
}

// ParseTimestamp accepts the record layout, RFC3339, or a bare day.
// Results are normalized to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTimestamp renders t in the record layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// DayKey returns the calendar day of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// MonthKey returns the calendar month of t as MM.YYYY.
func MonthKey(t time.Time) string {
	return t.UTC().Format("01.2006")
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last millisecond of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// DateRange is an inclusive interval of instants.
type DateRange struct {
	From time.Time
	To   time.Time
}

// CurrentMonth returns the calendar month containing now.
func CurrentMonth(now time.Time) DateRange {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{
		From: first,
		To:   first.AddDate(0, 1, 0).Add(-time.Millisecond),
	}
}

// DayRange covers a single calendar day.
func DayRange(day time.Time) DateRange {
	return DateRange{From: StartOfDay(day), To: EndOfDay(day)}
}

func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("date range needs both bounds")
	}
	if r.To.Before(r.From) {
		return fmt.Errorf("date range ends (%s) before it starts (%s)", DayKey(r.To), DayKey(r.From))
	}
	return nil
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

func (r DateRange) String() string {
	return DayKey(r.From) + ".." + DayKey(r.To)
}

// ParseDateRange reads "FROM..TO", the form String produces. A bare day as
// the upper bound covers that whole day.
func ParseDateRange(s string) (DateRange, error) {
	from, to, ok := strings.Cut(s, "..")
	if !ok {
		return DateRange{}, fmt.Errorf("date range %q: want FROM..TO", s)
	}
	var r DateRange
	var err error
	if r.From, err = ParseTimestamp(strings.TrimSpace(from)); err != nil {
		return DateRange{}, fmt.Errorf("date range start: %w", err)
	}
	to = strings.TrimSpace(to)
	if r.To, err = ParseTimestamp(to); err != nil {
		return DateRange{}, fmt.Errorf("date range end: %w", err)
	}
	if len(to) == len(DayLayout) {
		r.To = EndOfDay(r.To)
	}
	return r, r.Validate()
}
