package transform

import (
	"fmt"
	"strings"

	"github.com/dyluth/pricepipe/internal/dataset"
)

// AirlineVariant is the airline-ticket dataset.
const AirlineVariant = "airline"

// Raw airline columns.
const (
	colBookingDate   = "Date of Booking"
	colJourneyDate   = "Date of Journey"
	colAirlineClass  = "Airline-Class"
	colDepartureTime = "Departure Time"
	colArrivalTime   = "Arrival Time"
	colDuration      = "Duration"
	colTotalStops    = "Total Stops"
	colPrice         = "Price"
)

// Derived airline columns.
const (
	colAirline        = "Airline"
	colFlightCode     = "Flight code"
	colClass          = "Class"
	colDepartureClock = "Departure time"
	colDepartureCity  = "Departure city"
	colArrivalClock   = "Arrival time"
	colArrivalCity    = "Arrival city"
	colDateDifference = "Date Difference"
	colJourneyDay     = "Journey day"
	colJourneyMonth   = "Journey month"
)

// AirlineColumns is the airline-ticket input schema.
var AirlineColumns = []string{
	colBookingDate, colJourneyDate, colAirlineClass, colDepartureTime,
	colArrivalTime, colDuration, colTotalStops, colPrice,
}

// compoundDelimiter separates the parts of a compound field.
const compoundDelimiter = "\n"

// compoundFields are split into their parts, in this order, and then dropped.
var compoundFields = []struct {
	column string
	parts  []string
}{
	{colAirlineClass, []string{colAirline, colFlightCode, colClass}},
	{colDepartureTime, []string{colDepartureClock, colDepartureCity}},
	{colArrivalTime, []string{colArrivalClock, colArrivalCity}},
}

// ordinalColumns are encoded by first appearance; Class counts from 0, the rest from 1.
var ordinalColumns = []struct {
	column string
	start  int64
}{
	{colClass, 0},
	{colAirline, 1},
	{colDepartureCity, 1},
	{colArrivalCity, 1},
}

// Airline decomposes compound fields, buckets clock times, ordinal-encodes
// categories, derives date features and parses duration and price. The
// stages run in a fixed order; each depends on the columns the previous one
// produced.
type Airline struct {
	opts Options
}

// NewAirline creates the airline-ticket transformer.
func NewAirline(opts Options) *Airline {
	return &Airline{opts: opts}
}

func (a *Airline) Name() string { return AirlineVariant }

func (a *Airline) Columns() []string { return AirlineColumns }

func (a *Airline) Transform(t *dataset.Table) (*Report, error) {
	if err := t.Require(AirlineColumns...); err != nil {
		return nil, err
	}

	report := newReport(AirlineVariant, t.Len())

	stages := []func(*dataset.Table, *Report) error{
		a.splitCompounds,
		a.bucketTimes,
		a.encodeOrdinals,
		a.coerceStops,
		a.deriveDates,
		a.parseDurations,
		a.dropSources,
		a.normalizePrice,
	}
	for _, stage := range stages {
		if err := stage(t, report); err != nil {
			return nil, err
		}
	}

	return report, nil
}

func (a *Airline) splitCompounds(t *dataset.Table, _ *Report) error {
	for _, field := range compoundFields {
		values, err := t.Column(field.column)
		if err != nil {
			return err
		}

		parts := make([][]dataset.Cell, len(field.parts))
		for k := range parts {
			parts[k] = make([]dataset.Cell, len(values))
		}
		for i, v := range values {
			pieces := strings.Split(v.Text(), compoundDelimiter)
			if len(pieces) != len(field.parts) {
				return &ParseError{
					Column: field.column,
					Row:    i,
					Value:  v.Text(),
					Err:    fmt.Errorf("expected %d newline-separated parts, got %d", len(field.parts), len(pieces)),
				}
			}
			for k, piece := range pieces {
				parts[k][i] = dataset.Text(strings.TrimSpace(piece))
			}
		}

		for k, name := range field.parts {
			if err := t.AddColumn(name, parts[k]); err != nil {
				return err
			}
		}
		if err := t.DropColumns(field.column); err != nil {
			return err
		}
	}
	return nil
}

func (a *Airline) bucketTimes(t *dataset.Table, report *Report) error {
	for _, column := range []string{colDepartureClock, colArrivalClock} {
		values, err := t.Column(column)
		if err != nil {
			return err
		}

		var counts BucketCounts
		for i, v := range values {
			bucket, outcome := BucketTime(v.Text())
			if outcome == Unparseable && a.opts.StrictTimes {
				return &ParseError{Column: column, Row: i, Value: v.Text(), Err: ErrUnparseableTime}
			}
			counts.add(outcome)
			values[i] = dataset.Int(int64(bucket))
		}
		report.Times[column] = counts

		if err := t.SetColumn(column, values); err != nil {
			return err
		}
	}
	return nil
}

func (a *Airline) encodeOrdinals(t *dataset.Table, report *Report) error {
	for _, oc := range ordinalColumns {
		values, err := t.Column(oc.column)
		if err != nil {
			return err
		}

		// Fit over the whole column before rewriting any row
		encoding := FitOrdinal(values, oc.start)
		encoded, err := encoding.Encode(values)
		if err != nil {
			return fmt.Errorf("column %q: %w", oc.column, err)
		}
		report.Encodings[oc.column] = encoding.Mapping()

		if err := t.SetColumn(oc.column, encoded); err != nil {
			return err
		}
	}
	return nil
}

func (a *Airline) coerceStops(t *dataset.Table, _ *Report) error {
	return rewriteColumn(t, colTotalStops, func(v dataset.Cell) (dataset.Cell, error) {
		stops, err := ParseStops(v.Text())
		if err != nil {
			return dataset.Cell{}, err
		}
		return dataset.Int(stops), nil
	})
}

func (a *Airline) deriveDates(t *dataset.Table, _ *Report) error {
	bookings, err := t.Column(colBookingDate)
	if err != nil {
		return err
	}
	journeys, err := t.Column(colJourneyDate)
	if err != nil {
		return err
	}

	diff := make([]dataset.Cell, t.Len())
	day := make([]dataset.Cell, t.Len())
	month := make([]dataset.Cell, t.Len())
	for i := range bookings {
		booked, err := ParseDayFirstDate(bookings[i].Text())
		if err != nil {
			return &ParseError{Column: colBookingDate, Row: i, Value: bookings[i].Text(), Err: err}
		}
		journey, err := ParseDayFirstDate(journeys[i].Text())
		if err != nil {
			return &ParseError{Column: colJourneyDate, Row: i, Value: journeys[i].Text(), Err: err}
		}

		diff[i] = dataset.Float(DaysBetween(booked, journey))
		day[i] = dataset.Int(WeekdayIndex(journey))
		month[i] = dataset.Int(int64(journey.Month()))
	}

	if err := t.AddColumn(colDateDifference, diff); err != nil {
		return err
	}
	if err := t.AddColumn(colJourneyDay, day); err != nil {
		return err
	}
	return t.AddColumn(colJourneyMonth, month)
}

func (a *Airline) parseDurations(t *dataset.Table, _ *Report) error {
	return rewriteColumn(t, colDuration, func(v dataset.Cell) (dataset.Cell, error) {
		hours, err := ParseDuration(v.Text())
		if err != nil {
			return dataset.Cell{}, err
		}
		return dataset.Float(hours), nil
	})
}

func (a *Airline) dropSources(t *dataset.Table, _ *Report) error {
	return t.DropColumns(colBookingDate, colJourneyDate, colFlightCode)
}

// normalizePrice types the whole column at once: a single fractional price
// makes every price a float.
func (a *Airline) normalizePrice(t *dataset.Table, _ *Report) error {
	fractional := false
	err := rewriteColumn(t, colPrice, func(v dataset.Cell) (dataset.Cell, error) {
		price, err := ParsePrice(v.Text())
		if err != nil {
			return dataset.Cell{}, err
		}
		if price.Kind() == dataset.KindFloat {
			fractional = true
		}
		return price, nil
	})
	if err != nil {
		return err
	}
	if fractional {
		if err := rewriteColumn(t, colPrice, func(v dataset.Cell) (dataset.Cell, error) {
			return v.AsFloat(), nil
		}); err != nil {
			return err
		}
	}
	return t.MoveColumn(colPrice, 0)
}

// rewriteColumn applies fn to every value of column, wrapping failures in a
// *ParseError that names the row.
func rewriteColumn(t *dataset.Table, column string, fn func(dataset.Cell) (dataset.Cell, error)) error {
	values, err := t.Column(column)
	if err != nil {
		return err
	}
	for i, v := range values {
		out, err := fn(v)
		if err != nil {
			return &ParseError{Column: column, Row: i, Value: v.Text(), Err: err}
		}
		values[i] = out
	}
	return t.SetColumn(column, values)
}
