package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/pricepipe/internal/dataset"
	"github.com/shopspring/decimal"
)

// dayFirstLayouts are tried in order. Single-digit layout fields also accept
// zero-padded input, so "5-1-2024" and "05-01-2024" both parse.
var dayFirstLayouts = []string{
	"2-1-2006",
	"2/1/2006",
	"2.1.2006",
	"2006-01-02",
	"2-1-06",
	"2/1/06",
}

// ParseDayFirstDate parses a date written day before month, e.g. "05-01-2024"
// is the fifth of January.
func ParseDayFirstDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a day-first date")
}

// DaysBetween returns to - from as a fractional number of days.
func DaysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

// WeekdayIndex numbers days Monday=0 through Sunday=6.
func WeekdayIndex(t time.Time) int64 {
	return int64((int(t.Weekday()) + 6) % 7)
}

// ParseDuration converts "<H>h <M>m" into hours, e.g. "2h 30m" is 2.5.
func ParseDuration(s string) (float64, error) {
	hours, minutes, found := strings.Cut(strings.TrimSpace(s), "h ")
	if !found {
		return 0, fmt.Errorf(`expected "<H>h <M>m"`)
	}

	h, err := parseFinite(hours)
	if err != nil {
		return 0, fmt.Errorf("hours: %w", err)
	}
	m, err := parseFinite(strings.ReplaceAll(minutes, "m", ""))
	if err != nil {
		return 0, fmt.Errorf("minutes: %w", err)
	}

	return h + m/60, nil
}

// ParsePrice strips thousands separators and parses the remaining number.
// Whole prices become integer cells, fractional prices float cells.
func ParsePrice(s string) (dataset.Cell, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return dataset.Cell{}, fmt.Errorf("not a price: %w", err)
	}
	if d.IsInteger() && d.Abs().LessThan(decimal.New(1, 18)) {
		return dataset.Int(d.IntPart()), nil
	}
	return dataset.Float(d.InexactFloat64()), nil
}

// ParseStops reads the stop count from the first character of a free-text
// field: "non-stop" is 0, "1-stop" is 1, "2+-stop" is 2.
func ParseStops(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty stop count")
	}
	switch first := s[0]; {
	case first == 'n':
		return 0, nil
	case first >= '0' && first <= '9':
		return int64(first - '0'), nil
	default:
		return 0, fmt.Errorf("stop count must start with a digit or 'n'")
	}
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite", s)
	}
	return v, nil
}
