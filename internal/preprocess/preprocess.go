// Package preprocess is the data preparation job: fetch the raw dataset,
// encode it and write the train, validation and test partitions.
package preprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dyluth/pricepipe/internal/dataset"
	"github.com/dyluth/pricepipe/internal/etl"
	"github.com/dyluth/pricepipe/internal/storage"
	"github.com/dyluth/pricepipe/internal/transform"
	"github.com/rs/zerolog"
)

// DefaultBaseDir is the processing root the partitions are written under.
const DefaultBaseDir = "/opt/ml/processing"

// Options configure one preprocessing run.
type Options struct {
	// InputData is an s3:// URL, file:// URL or local path.
	InputData string
	// Dataset names the transform variant.
	Dataset   string
	BaseDir   string
	Transform transform.Options
	S3        storage.S3Options
	// Fetcher overrides the fetcher chosen from the input location.
	Fetcher storage.Fetcher
	Logger  zerolog.Logger
}

// Result describes a finished run.
type Result struct {
	LocalInput string             `json:"local_input"`
	Rows       int                `json:"rows"`
	Columns    []string           `json:"columns"`
	Boundaries dataset.Boundaries `json:"boundaries"`
	Outputs    storage.Outputs    `json:"outputs"`
	Report     *transform.Report  `json:"report"`
	Duration   time.Duration      `json:"duration"`
}

// Sizes returns the row counts of the three partitions.
func (r *Result) Sizes() (train, validation, test int) {
	b := r.Boundaries
	return b.TrainEnd, b.ValidationEnd - b.TrainEnd, r.Rows - b.ValidationEnd
}

// Run executes the job. Partitions already written when a later one fails
// are left in place.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.BaseDir == "" {
		opts.BaseDir = DefaultBaseDir
	}
	logger := opts.Logger.With().Str("dataset", opts.Dataset).Logger()

	tr, err := transform.Lookup(opts.Dataset, opts.Transform)
	if err != nil {
		return nil, err
	}

	loc, err := storage.ParseLocator(opts.InputData)
	if err != nil {
		return nil, err
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher, err = storage.FetcherFor(ctx, loc, opts.S3)
		if err != nil {
			return nil, err
		}
	}

	started := time.Now()
	result := &Result{}

	logger.Info().Str("input", loc.String()).Str("base_dir", opts.BaseDir).Msg("Starting preprocessing")

	pipeline := etl.New(tr.Name()).
		Hook(etl.LogHook{Logger: logger}).
		Read(func(ctx context.Context) (*dataset.Table, error) {
			path, err := fetcher.Fetch(ctx, loc, filepath.Join(opts.BaseDir, storage.DataDir))
			if err != nil {
				return nil, err
			}
			result.LocalInput = path
			logger.Debug().Str("path", path).Msg("Dataset fetched")
			return readTable(path)
		}).
		Transform("encode "+tr.Name(), func(ctx context.Context, t *dataset.Table) error {
			report, err := tr.Transform(t)
			if err != nil {
				return err
			}
			result.Report = report
			logReport(logger, report)
			return nil
		}).
		Write(func(ctx context.Context, t *dataset.Table) error {
			logger.Info().Int("rows", t.Len()).Msg("Splitting rows")
			parts := dataset.Split(t)
			outputs, err := storage.WritePartitions(opts.BaseDir, parts)
			if err != nil {
				return err
			}
			result.Rows = t.Len()
			result.Columns = t.Columns()
			result.Boundaries = parts.Boundaries
			result.Outputs = outputs
			return nil
		})

	if err := pipeline.Run(ctx); err != nil {
		return nil, err
	}

	result.Duration = time.Since(started)
	train, validation, test := result.Sizes()
	logger.Info().
		Int("train", train).
		Int("validation", validation).
		Int("test", test).
		Dur("took", result.Duration).
		Msg("Preprocessing finished")

	return result, nil
}

func readTable(path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &storage.StorageError{Op: "read", Location: path, Err: err}
	}
	defer f.Close()

	t, err := dataset.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return t, nil
}

func logReport(logger zerolog.Logger, report *transform.Report) {
	for column, n := range report.Unmapped {
		logger.Warn().Str("column", column).Int("count", n).Msg("Values outside the category vocabulary passed through unencoded")
	}
	for column, counts := range report.Times {
		if counts.Unparseable > 0 {
			logger.Warn().Str("column", column).Int("count", counts.Unparseable).Msg("Unreadable clock times bucketed as Midnight")
		}
		if counts.OutOfRange > 0 {
			logger.Debug().Str("column", column).Int("count", counts.OutOfRange).Msg("Clock times outside the day bins bucketed as Midnight")
		}
	}
	for column, mapping := range report.Encodings {
		logger.Debug().Str("column", column).Int("labels", len(mapping)).Msg("Ordinal encoding built")
	}
}
