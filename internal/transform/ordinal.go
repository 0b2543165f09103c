package transform

import (
	"fmt"

	"github.com/dyluth/pricepipe/internal/dataset"
)

// OrdinalEncoding maps category labels to integer codes in the order the
// labels first appear. The codes are a function of row order, not of the
// labels themselves: the same data in a different order encodes differently.
type OrdinalEncoding struct {
	start  int64
	labels []string
	codes  map[string]int64
}

// LabelCode is one entry of an encoding, in assignment order.
type LabelCode struct {
	Label string `json:"label"`
	Code  int64  `json:"code"`
}

// FitOrdinal scans values top to bottom and assigns start, start+1, ... to
// each distinct label on first sight.
func FitOrdinal(values []dataset.Cell, start int64) *OrdinalEncoding {
	e := &OrdinalEncoding{
		start: start,
		codes: make(map[string]int64),
	}
	for _, v := range values {
		label := v.Text()
		if _, seen := e.codes[label]; seen {
			continue
		}
		e.codes[label] = start + int64(len(e.labels))
		e.labels = append(e.labels, label)
	}
	return e
}

// Code returns the code for label.
func (e *OrdinalEncoding) Code(label string) (int64, bool) {
	code, ok := e.codes[label]
	return code, ok
}

// Len returns the number of distinct labels.
func (e *OrdinalEncoding) Len() int {
	return len(e.labels)
}

// Mapping returns every label with its code, lowest code first.
func (e *OrdinalEncoding) Mapping() []LabelCode {
	out := make([]LabelCode, len(e.labels))
	for i, label := range e.labels {
		out[i] = LabelCode{Label: label, Code: e.start + int64(i)}
	}
	return out
}

// Encode rewrites values with their codes. A label the encoding was not
// fitted on is an error.
func (e *OrdinalEncoding) Encode(values []dataset.Cell) ([]dataset.Cell, error) {
	out := make([]dataset.Cell, len(values))
	for i, v := range values {
		code, ok := e.codes[v.Text()]
		if !ok {
			return nil, fmt.Errorf("row %d: label %q not in encoding", i, v.Text())
		}
		out[i] = dataset.Int(code)
	}
	return out, nil
}
