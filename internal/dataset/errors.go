package dataset

import "fmt"

// SchemaError reports input that does not match the expected column schema:
// a missing column, or a row with the wrong number of values.
type SchemaError struct {
	Column string // Missing column, empty for row-shape errors
	Row    int    // Zero-based data row, -1 when the header is at fault
	Detail string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Column != "" && e.Row >= 0:
		return fmt.Sprintf("schema error: column %q missing at row %d", e.Column, e.Row)
	case e.Column != "":
		return fmt.Sprintf("schema error: required column %q not found", e.Column)
	case e.Row >= 0:
		return fmt.Sprintf("schema error: row %d: %s", e.Row, e.Detail)
	default:
		return fmt.Sprintf("schema error: %s", e.Detail)
	}
}
