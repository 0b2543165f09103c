package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadCSV reads a comma-delimited file with a header row into a table of text
// cells. Quoted values may span lines; embedded newlines are kept verbatim.
// Every data row must have exactly one value per header column.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Row: -1, Detail: "input is empty, header row expected"}
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	// Tolerate a UTF-8 byte order mark on the first column name
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	table, err := NewTable(header)
	if err != nil {
		return nil, &SchemaError{Row: -1, Detail: err.Error()}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", table.Len(), err)
		}

		row := make([]Cell, len(record))
		for j, value := range record {
			row[j] = Text(value)
		}
		if err := table.Append(row); err != nil {
			return nil, err
		}
	}

	return table, nil
}

// WriteCSV writes the table's rows without a header row and without a row index.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	record := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j, cell := range t.Row(i) {
			record[j] = cell.String()
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush rows: %w", err)
	}
	return nil
}
