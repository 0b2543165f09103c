package transform

import "github.com/dyluth/pricepipe/internal/dataset"

// Remap is a fixed label-to-code vocabulary.
type Remap map[string]int64

// RemapOutcome tags whether a value was found in the vocabulary.
type RemapOutcome int

const (
	Mapped RemapOutcome = iota
	Unmapped
)

// Remapped is the result of applying a Remap to one value. Unmapped values
// carry the original cell unchanged.
type Remapped struct {
	Cell    dataset.Cell
	Outcome RemapOutcome
}

// Apply looks v up by its exact text.
func (m Remap) Apply(v dataset.Cell) Remapped {
	if code, ok := m[v.Text()]; ok {
		return Remapped{Cell: dataset.Int(code), Outcome: Mapped}
	}
	return Remapped{Cell: v, Outcome: Unmapped}
}

var (
	yesNo = Remap{
		"yes": 1,
		"no":  0,
	}

	furnishing = Remap{
		"furnished":      2,
		"semi-furnished": 1,
		"unfurnished":    0,
	}
)
