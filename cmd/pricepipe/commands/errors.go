package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/pricepipe/internal/dataset"
	"github.com/dyluth/pricepipe/internal/printer"
	"github.com/dyluth/pricepipe/internal/storage"
	"github.com/dyluth/pricepipe/internal/trainer"
	"github.com/dyluth/pricepipe/internal/transform"
)

// jobError prints err with the details its type carries and returns the
// short error Cobra sees.
func jobError(title string, err error) error {
	var (
		schemaErr   *dataset.SchemaError
		parseErr    *transform.ParseError
		unmappedErr *transform.UnmappedCategoryError
		storageErr  *storage.StorageError
		exitErr     *trainer.ExitError
	)

	switch {
	case errors.As(err, &schemaErr):
		context := map[string]string{}
		if schemaErr.Column != "" {
			context["Column"] = schemaErr.Column
		}
		if schemaErr.Row >= 0 {
			context["Row"] = strconv.Itoa(schemaErr.Row)
		}
		return printer.ErrorWithContext(title, err.Error(), context, []string{
			"Check the input has a header row with every column the dataset variant needs.",
			"Check --dataset matches the input file.",
		})

	case errors.As(err, &parseErr):
		return printer.ErrorWithContext(title, err.Error(), map[string]string{
			"Column": parseErr.Column,
			"Row":    strconv.Itoa(parseErr.Row),
			"Value":  strconv.Quote(parseErr.Value),
		}, []string{"Fix or remove the offending row; rows are never skipped."})

	case errors.As(err, &unmappedErr):
		return printer.ErrorWithContext(title, err.Error(), map[string]string{
			"Column": unmappedErr.Column,
			"Row":    strconv.Itoa(unmappedErr.Row),
			"Value":  strconv.Quote(unmappedErr.Value),
		}, []string{"Disable transform.strict_categories to pass unknown values through."})

	case errors.As(err, &storageErr):
		return printer.ErrorWithContext(title, err.Error(), map[string]string{
			"Operation": storageErr.Op,
			"Location":  storageErr.Location,
		}, []string{
			"Check the location exists and is readable.",
			"For s3:// inputs check AWS credentials and storage.region.",
		})

	case errors.As(err, &exitErr):
		explanation := fmt.Sprintf("The %s container failed.", exitErr.Stage)
		if tail := strings.TrimSpace(exitErr.LogTail); tail != "" {
			explanation += "\n\nLast container output:\n" + tail
		}
		return printer.ErrorWithContext(title, explanation, map[string]string{
			"Stage":     exitErr.Stage,
			"Exit code": strconv.FormatInt(exitErr.ExitCode, 10),
		}, nil)
	}

	return printer.Error(title, err.Error(), nil)
}
