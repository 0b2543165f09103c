package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/pricepipe/internal/config"
	"github.com/dyluth/pricepipe/internal/history"
	"github.com/dyluth/pricepipe/internal/printer"
	"github.com/dyluth/pricepipe/internal/resolver"
	"github.com/dyluth/pricepipe/internal/runstore"
	"github.com/dyluth/pricepipe/internal/timespec"
	"github.com/spf13/cobra"
)

type runsFlags struct {
	configPath string
	output     string
	since      string
	until      string
	status     string
	pipeline   string
	watch      bool
	redisURL   string
	storeFile  string
	namespace  string
}

func newRunsCmd(g *globals) *cobra.Command {
	f := &runsFlags{}

	cmd := &cobra.Command{
		Use:   "runs [RUN_ID]",
		Short: "Inspect pipeline run history",
		Long: `Inspect recorded pipeline runs in list or get mode.

List Mode (no RUN_ID):
  Displays runs matching filters as a table or JSONL stream, oldest first.

Get Mode (with RUN_ID):
  Displays the complete run record as pretty-printed JSON.
  Supports short IDs (e.g., "a1b2c3" instead of the full UUID).

Watch Mode (--watch):
  Streams run updates as they happen. Requires the Redis run store.

Examples:
  # List all runs
  pricepipe runs

  # Failed runs of the last day as JSONL
  pricepipe runs --status=failed --since=24h -o jsonl

  # One run by short ID
  pricepipe runs a1b2c3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "f", defaultConfigFile, "Pipeline configuration file naming the run store")
	cmd.Flags().StringVarP(&f.output, "output", "o", "default", "Output format: default or jsonl (ignored in get mode)")
	cmd.Flags().StringVar(&f.since, "since", "", "Show runs started after time (duration or RFC3339)")
	cmd.Flags().StringVar(&f.until, "until", "", "Show runs started before time (duration or RFC3339)")
	cmd.Flags().StringVar(&f.status, "status", "", "Filter by status: running, succeeded, failed or gated")
	cmd.Flags().StringVar(&f.pipeline, "pipeline", "", "Filter by pipeline name")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Stream run updates (Redis store only)")
	cmd.Flags().StringVar(&f.redisURL, "redis-url", "", "Redis run store URL (overrides store.redis_url)")
	cmd.Flags().StringVar(&f.storeFile, "store-file", "", "File run store path (overrides store.file)")
	cmd.Flags().StringVar(&f.namespace, "namespace", "", "Run store namespace (overrides store.namespace)")

	return cmd
}

func runRuns(cmd *cobra.Command, f *runsFlags, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	format, err := history.ParseOutputFormat(f.output)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, jsonl"})
	}

	sc, err := storeConfig(cmd, f)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, sc)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		return getRun(ctx, store, args[0], out)
	}

	filter, err := runsFilter(f)
	if err != nil {
		return err
	}

	if f.watch {
		return watchRuns(ctx, store, filter, format, out)
	}

	if err := history.ListRuns(ctx, store, filter, format, out); err != nil {
		return printer.Error("failed to list runs", err.Error(), nil)
	}
	return nil
}

// storeConfig resolves the run store from pipeline.yml, defaults and flags.
func storeConfig(cmd *cobra.Command, f *runsFlags) (config.StoreConfig, error) {
	sc := config.StoreConfig{File: config.DefaultStoreFile, Namespace: config.DefaultNamespace}

	cfg, err := loadConfig(f.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return sc, err
	}
	if cfg != nil {
		sc = cfg.Store
	}

	if f.redisURL != "" {
		sc.RedisURL = f.redisURL
	}
	if f.storeFile != "" {
		sc.File = f.storeFile
		if !cmd.Flags().Changed("redis-url") {
			sc.RedisURL = ""
		}
	}
	if f.namespace != "" {
		sc.Namespace = f.namespace
	}
	return sc, nil
}

func runsFilter(f *runsFlags) (*runstore.Filter, error) {
	since, until, err := timespec.ParseRange(f.since, f.until, time.Now())
	if err != nil {
		return nil, printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use duration format like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z'"},
		)
	}

	status := runstore.Status(f.status)
	if status != "" {
		if err := status.Validate(); err != nil {
			return nil, printer.Error("invalid status filter", err.Error(), []string{"Valid statuses: running, succeeded, failed, gated"})
		}
	}

	return &runstore.Filter{Since: since, Until: until, Status: status, Pipeline: f.pipeline}, nil
}

func getRun(ctx context.Context, store runstore.Store, shortID string, w io.Writer) error {
	fullID, err := resolver.ResolveRunID(ctx, store, shortID)
	if err != nil {
		if resolver.IsNotFoundError(err) {
			return printer.Error(
				fmt.Sprintf("run with ID '%s' not found", shortID),
				"No recorded run has this ID.",
				[]string{"List all runs:\n  pricepipe runs"},
			)
		}
		if resolver.IsAmbiguousError(err) {
			return printer.Error("ambiguous short ID", resolver.FormatAmbiguousError(err.(*resolver.AmbiguousError)), nil)
		}
		return printer.Error("invalid run ID", err.Error(), nil)
	}

	if err := history.GetRun(ctx, store, fullID, w); err != nil {
		if history.IsNotFound(err) {
			return printer.Error(
				fmt.Sprintf("run with ID '%s' not found", fullID),
				"The run was resolved but could not be fetched.",
				[]string{"This might indicate a race condition. Try again."},
			)
		}
		return fmt.Errorf("failed to get run: %w", err)
	}
	return nil
}

// watchRuns prints run updates until ctx is cancelled.
func watchRuns(ctx context.Context, store runstore.Store, filter *runstore.Filter, format history.OutputFormat, w io.Writer) error {
	redisStore, ok := store.(*runstore.RedisStore)
	if !ok {
		return printer.Error(
			"watch needs the Redis run store",
			"The file run store does not publish run updates.",
			[]string{"Set store.redis_url in pipeline.yml, or pass --redis-url"},
		)
	}

	sub, err := redisStore.SubscribeRunEvents(ctx)
	if err != nil {
		return printer.Error("failed to watch runs", err.Error(), nil)
	}
	defer sub.Close()

	events, errs := sub.Events(), sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case record, ok := <-events:
			if !ok {
				return nil
			}
			if !filter.Matches(record) {
				continue
			}
			if format == history.OutputFormatJSONL {
				if err := history.FormatJSONL(w, []*runstore.RunRecord{record}); err != nil {
					return err
				}
				continue
			}
			history.FormatEvent(w, record, time.Now())
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			printer.Warning("Skipping run update: %v\n", err)
		}
	}
}
