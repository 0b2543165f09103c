package commands

import (
	"fmt"

	"github.com/dyluth/pricepipe/internal/preprocess"
	"github.com/dyluth/pricepipe/internal/printer"
	"github.com/dyluth/pricepipe/internal/storage"
	"github.com/dyluth/pricepipe/internal/transform"
	"github.com/spf13/cobra"
)

type preprocessFlags struct {
	configPath       string
	inputData        string
	dataset          string
	baseDir          string
	strictCategories bool
	strictTimes      bool
	region           string
	endpoint         string
}

func newPreprocessCmd(g *globals) *cobra.Command {
	f := &preprocessFlags{}

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Encode a raw dataset and split it into train, validation and test",
		Long: `Fetch the raw dataset, apply the dataset's feature transform, and write
three headerless partitions in original row order:

  <base-dir>/train/train.csv            first 70% of rows
  <base-dir>/validation/validation.csv  next 15%
  <base-dir>/test/test.csv              remaining rows

The input may be an s3:// URL, a file:// URL or a local path. Settings are
read from pipeline.yml when present; flags override them.

Examples:
  # Housing dataset from S3
  pricepipe preprocess --input-data s3://my-bucket/dataset/Housing.csv --dataset housing

  # Airline dataset from a local file into a scratch directory
  pricepipe preprocess --input-data ./airline.csv --dataset airline --base-dir /tmp/processing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreprocess(cmd, g, f)
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "f", defaultConfigFile, "Pipeline configuration file")
	cmd.Flags().StringVar(&f.inputData, "input-data", "", "Dataset location (s3://bucket/key, file:// URL or path)")
	cmd.Flags().StringVar(&f.dataset, "dataset", "housing", "Dataset variant: housing or airline")
	cmd.Flags().StringVar(&f.baseDir, "base-dir", preprocess.DefaultBaseDir, "Processing root for the fetched input and the partitions")
	cmd.Flags().BoolVar(&f.strictCategories, "strict-categories", false, "Fail on values outside a remap vocabulary")
	cmd.Flags().BoolVar(&f.strictTimes, "strict-times", false, "Fail on unreadable clock times instead of bucketing them as Midnight")
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region for s3:// inputs")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "S3-compatible endpoint URL")

	return cmd
}

func runPreprocess(cmd *cobra.Command, g *globals, f *preprocessFlags) error {
	opts, err := preprocessOptions(cmd, f)
	if err != nil {
		return err
	}
	if opts.InputData == "" {
		return printer.Error(
			"no input data",
			"preprocess needs the location of the raw dataset.",
			[]string{
				"Pass it on the command line:\n  pricepipe preprocess --input-data s3://bucket/key",
				"Set input_data in pipeline.yml",
			},
		)
	}
	opts.Logger = g.logger

	result, err := preprocess.Run(cmd.Context(), opts)
	if err != nil {
		return jobError("preprocessing failed", err)
	}

	printPreprocessResult(result)
	return nil
}

// preprocessOptions layers the explicitly set flags over pipeline.yml.
func preprocessOptions(cmd *cobra.Command, f *preprocessFlags) (preprocess.Options, error) {
	opts := preprocess.Options{
		InputData: f.inputData,
		Dataset:   f.dataset,
		BaseDir:   f.baseDir,
		Transform: transform.Options{StrictCategories: f.strictCategories, StrictTimes: f.strictTimes},
		S3:        storage.S3Options{Region: f.region, Endpoint: f.endpoint},
	}

	cfg, err := loadConfig(f.configPath, cmd.Flags().Changed("config"))
	if err != nil || cfg == nil {
		return opts, err
	}

	changed := cmd.Flags().Changed
	if !changed("input-data") {
		opts.InputData = cfg.InputData
	}
	if !changed("dataset") {
		opts.Dataset = cfg.Dataset
	}
	if !changed("base-dir") {
		opts.BaseDir = cfg.BaseDir
	}
	if !changed("strict-categories") {
		opts.Transform.StrictCategories = cfg.Transform.StrictCategories
	}
	if !changed("strict-times") {
		opts.Transform.StrictTimes = cfg.Transform.StrictTimes
	}
	if !changed("region") {
		opts.S3.Region = cfg.Storage.Region
	}
	if !changed("endpoint") {
		opts.S3.Endpoint = cfg.Storage.Endpoint
	}
	return opts, nil
}

func printPreprocessResult(result *preprocess.Result) {
	train, validation, test := result.Sizes()

	printer.Success("Preprocessed %d rows (%s)\n", result.Rows, result.Report.Variant)
	printer.Summary("Partitions", []printer.Field{
		{Key: "train", Value: fmt.Sprintf("%d rows → %s", train, result.Outputs.Train)},
		{Key: "validation", Value: fmt.Sprintf("%d rows → %s", validation, result.Outputs.Validation)},
		{Key: "test", Value: fmt.Sprintf("%d rows → %s", test, result.Outputs.Test)},
	})

	if n := result.Report.UnmappedTotal(); n > 0 {
		printer.Warning("%d values outside the category vocabulary were written unencoded\n", n)
	}
	if n := result.Report.UnparseableTimes(); n > 0 {
		printer.Warning("%d unreadable clock times were bucketed as Midnight\n", n)
	}
}
