package transform

import (
	"errors"
	"fmt"

	"github.com/dyluth/pricepipe/internal/dataset"
)

// SchemaError reports an expected column absent from the input.
type SchemaError = dataset.SchemaError

// ErrUnparseableTime is wrapped by ParseError when strict time bucketing
// rejects a clock value instead of assigning it to the Midnight bucket.
var ErrUnparseableTime = errors.New("unparseable clock time")

// ParseError reports a field that does not match its expected textual
// pattern. The whole transform fails; rows are never skipped.
type ParseError struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: column %q row %d value %q: %v", e.Column, e.Row, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnmappedCategoryError reports a categorical value outside the remap
// vocabulary. Only returned when strict category handling is enabled;
// otherwise the value passes through and is counted in the Report.
type UnmappedCategoryError struct {
	Column string
	Row    int
	Value  string
}

func (e *UnmappedCategoryError) Error() string {
	return fmt.Sprintf("unmapped category: column %q row %d value %q", e.Column, e.Row, e.Value)
}
