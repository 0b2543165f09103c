package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies how a Cell holds its value.
type Kind int

const (
	// KindText is a raw value exactly as it was read from the input
	KindText Kind = iota
	// KindInt is an encoded integer value
	KindInt
	// KindFloat is an encoded floating-point value
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Cell is a single table value. Raw input arrives as text; transforms replace
// it with numeric cells. Text cells that survive a transform are written back
// out untouched.
type Cell struct {
	kind Kind
	text string
	i    int64
	num  float64
}

// Text returns a raw text cell.
func Text(s string) Cell {
	return Cell{kind: KindText, text: s}
}

// Int returns an integer cell.
func Int(v int64) Cell {
	return Cell{kind: KindInt, i: v}
}

// Float returns a floating-point cell.
func Float(v float64) Cell {
	return Cell{kind: KindFloat, num: v}
}

// Int64 returns the value of an integer cell; ok is false for other kinds.
func (c Cell) Int64() (v int64, ok bool) {
	if c.kind != KindInt {
		return 0, false
	}
	return c.i, true
}

// AsFloat converts an integer cell to a float cell. Other cells are returned
// unchanged.
func (c Cell) AsFloat() Cell {
	if c.kind != KindInt {
		return c
	}
	return Float(float64(c.i))
}

// Kind reports how the cell holds its value.
func (c Cell) Kind() Kind {
	return c.kind
}

// Text returns the raw text of a text cell, or the rendered value otherwise.
func (c Cell) Text() string {
	if c.kind == KindText {
		return c.text
	}
	return c.String()
}

// Number returns the numeric value of the cell. Text cells are parsed as
// floats; ok is false when the cell has no finite numeric value.
func (c Cell) Number() (v float64, ok bool) {
	switch c.kind {
	case KindInt:
		v = float64(c.i)
	case KindFloat:
		v = c.num
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(c.text), 64)
		if err != nil {
			return 0, false
		}
		v = f
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// IsNumeric reports whether the cell holds, or parses to, a finite number.
func (c Cell) IsNumeric() bool {
	_, ok := c.Number()
	return ok
}

// String renders the cell the way it is written to output files.
// Floats with no fractional part keep a trailing ".0".
func (c Cell) String() string {
	switch c.kind {
	case KindInt:
		return strconv.FormatInt(c.i, 10)
	case KindFloat:
		s := strconv.FormatFloat(c.num, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eEIN") {
			s += ".0"
		}
		return s
	default:
		return c.text
	}
}
