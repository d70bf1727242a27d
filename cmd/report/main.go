// Command report runs the dashboard pipeline offline and prints chart data or
// ad-hoc aggregates for a selection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"shipdash/internal/config"
	"shipdash/internal/dataset"
	"shipdash/internal/models"
	"shipdash/internal/observability"
	"shipdash/internal/services"
)

type options struct {
	data       string
	cacheDir   string
	chartsFile string
	bins       int
	format     string
	logLevel   string
	timeout    time.Duration
	workers    int

	years   []string
	markets []string
	regions []string
	express []string

	groupBy []string
	metric  string
	column  string
	order   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "report",
		Short: "Print Express vs Standard shipping figures without the web server",
		Long: `Loads the sales dataset, applies the Year / Market / Region / Express Flag
filters and prints chart data or an ad-hoc aggregate.

A filter flag that is omitted selects every value; a filter passed with an
empty value (--year=) selects none.

Example:
  report chart region-lag --data GSD.csv --year 2014 --market APAC,EU
  report aggregate --group-by Market --metric mean --column "Ship Lag" --format json`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.data, "data", "GSD.csv", "Path to the sales dataset (.csv or .xlsx)")
	pf.StringVar(&opts.cacheDir, "cache-dir", "", "Directory for the parsed snapshot cache (empty disables it)")
	pf.StringVar(&opts.chartsFile, "charts", "", "Optional YAML file overriding catalogue entries")
	pf.IntVar(&opts.bins, "bins", 0, "Histogram bin count (0 uses Sturges' rule)")
	pf.StringVarP(&opts.format, "format", "f", "table", "Output format: table or json")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	pf.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Dataset load timeout")
	pf.IntVar(&opts.workers, "workers", 10, "Parallel row parsing workers")
	pf.StringSliceVar(&opts.years, "year", nil, "Years to include")
	pf.StringSliceVar(&opts.markets, "market", nil, "Markets to include")
	pf.StringSliceVar(&opts.regions, "region", nil, "Regions to include")
	pf.StringSliceVar(&opts.express, "express", nil, "Shipping types to include (Express, Standard)")

	root.AddCommand(
		newChartsCmd(opts),
		newChartCmd(opts),
		newAggregateCmd(opts),
		newOptionsCmd(opts),
	)
	return root
}

func newChartsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "charts",
		Short: "List the chart catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := services.DefaultCatalogue()
			if opts.chartsFile != "" {
				overrides, err := services.LoadCatalogue(opts.chartsFile)
				if err != nil {
					return err
				}
				specs = services.MergeCatalogue(specs, overrides)
			}
			return writeCatalogue(cmd.OutOrStdout(), opts.format, specs)
		},
	}
}

func newChartCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chart [chart-id]",
		Short: "Print the data behind one catalogue chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dash, sel, err := prepare(ctx, cmd, opts)
			if err != nil {
				return err
			}
			data, err := dash.ComputeChart(ctx, args[0], sel)
			if err != nil {
				return err
			}
			return writeChart(cmd.OutOrStdout(), opts.format, data)
		},
	}
}

func newAggregateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Group the filtered view and compute a mean or count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dash, sel, err := prepare(ctx, cmd, opts)
			if err != nil {
				return err
			}
			rows, err := dash.Aggregate(ctx, sel, opts.groupBy, opts.metric, opts.column, models.Order(opts.order))
			if err != nil {
				return err
			}
			return writeRows(cmd.OutOrStdout(), opts.format, opts.groupBy, rows)
		},
	}
	cmd.Flags().StringSliceVar(&opts.groupBy, "group-by", nil, "Key columns to group by")
	cmd.Flags().StringVar(&opts.metric, "metric", "count", "Metric: mean or count")
	cmd.Flags().StringVar(&opts.column, "column", "", "Measure column for the mean metric")
	cmd.Flags().StringVar(&opts.order, "order", string(models.OrderByKey), "Row order: key or count_desc")
	cmd.MarkFlagRequired("group-by")
	return cmd
}

func newOptionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List the distinct values of each filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dash, _, err := prepare(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			return writeOptions(cmd.OutOrStdout(), opts.format, dash.Options())
		},
	}
}

// prepare loads the dataset and resolves the filter flags.
func prepare(ctx context.Context, cmd *cobra.Command, opts *options) (*services.Dashboard, models.Selection, error) {
	if opts.format != "table" && opts.format != "json" {
		return nil, models.Selection{}, fmt.Errorf("unsupported format %q", opts.format)
	}

	if opts.workers < 1 {
		return nil, models.Selection{}, fmt.Errorf("--workers must be at least 1, got %d", opts.workers)
	}

	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), config.LoggerConfig{Level: opts.logLevel, Format: "text"})

	loadOpts := []dataset.Option{dataset.WithLogger(logger), dataset.WithWorkers(opts.workers)}
	if opts.cacheDir != "" {
		loadOpts = append(loadOpts, dataset.WithCacheDir(opts.cacheDir))
	}

	loadCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	data, err := dataset.NewLoader(opts.data, loadOpts...).Load(loadCtx)
	if err != nil {
		return nil, models.Selection{}, err
	}

	catalogue := services.DefaultCatalogue()
	if opts.chartsFile != "" {
		overrides, err := services.LoadCatalogue(opts.chartsFile)
		if err != nil {
			return nil, models.Selection{}, err
		}
		catalogue = services.MergeCatalogue(catalogue, overrides)
	}

	dash := services.NewDashboard(data,
		services.WithLogger(logger),
		services.WithHistogramBins(opts.bins),
		services.WithCatalogue(catalogue),
	)

	sel, err := dash.ResolveSelection(selectionRequest(cmd.Flags(), opts))
	if err != nil {
		return nil, models.Selection{}, err
	}
	return dash, sel, nil
}

// selectionRequest leaves a dimension nil unless its flag was given, so an
// omitted flag selects every value.
func selectionRequest(flags *pflag.FlagSet, opts *options) models.SelectionRequest {
	pick := func(name string, values []string) []string {
		if !flags.Changed(name) {
			return nil
		}
		if values == nil {
			return []string{}
		}
		return values
	}
	return models.SelectionRequest{
		Years:        pick("year", opts.years),
		Markets:      pick("market", opts.markets),
		Regions:      pick("region", opts.regions),
		ExpressFlags: pick("express", opts.express),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
