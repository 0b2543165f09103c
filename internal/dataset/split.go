package dataset

// Partition cut fractions. Rows [0, 70%) train, [70%, 85%) validate, the rest test.
const (
	TrainFraction      = 0.7
	ValidationFraction = 0.85
)

// Boundaries holds the two cut indices over a table's rows.
// Train is [0, TrainEnd), validation is [TrainEnd, ValidationEnd), test is [ValidationEnd, n).
type Boundaries struct {
	TrainEnd      int `json:"train_end"`
	ValidationEnd int `json:"validation_end"`
}

// Cut computes the partition boundaries for n rows. The cuts truncate toward
// zero, so a fixed n always yields the same boundaries.
func Cut(n int) Boundaries {
	return Boundaries{
		TrainEnd:      int(TrainFraction * float64(n)),
		ValidationEnd: int(ValidationFraction * float64(n)),
	}
}

// Partitions are the three contiguous, order-preserving subsets of a table.
type Partitions struct {
	Train      *Table
	Validation *Table
	Test       *Table
	Boundaries Boundaries
}

// Split partitions t by position. There is no shuffling; concatenating
// Train, Validation and Test in that order reproduces t.
func Split(t *Table) Partitions {
	b := Cut(t.Len())
	return Partitions{
		Train:      t.Slice(0, b.TrainEnd),
		Validation: t.Slice(b.TrainEnd, b.ValidationEnd),
		Test:       t.Slice(b.ValidationEnd, t.Len()),
		Boundaries: b,
	}
}

// Sizes returns the row counts of the three partitions.
func (p Partitions) Sizes() (train, validation, test int) {
	return p.Train.Len(), p.Validation.Len(), p.Test.Len()
}
