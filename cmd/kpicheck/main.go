// Command kpicheck loads a KPI file the way the dashboard does and prints
// what the dashboard would show for it.
//
//	kpicheck -metric availability -site S1 data/kpi_data.csv
//	kpicheck -export view.xlsx data/kpi_data.csv
//	kpicheck data/            # newest KPI file in the directory
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"kpidash/internal/analytics"
	"kpidash/internal/config"
	"kpidash/internal/dataprocessing"
	"kpidash/internal/exporter"
	"kpidash/internal/files"
	"kpidash/internal/infrastructure"
	"kpidash/internal/validation"
	api "kpidash/pkg/contracts/api/v1"
	"kpidash/pkg/contracts/domain"
)

// Exit codes
const (
	exitOK    = 0
	exitLoad  = 1
	exitUsage = 2
)

// report is the JSON document printed on success
type report struct {
	Dataset   *api.DatasetInfo    `json:"dataset"`
	State     domain.FilterState  `json:"state"`
	Summary   domain.Summary      `json:"summary"`
	Trend     []domain.TrendPoint `json:"trend"`
	Threshold *domain.Threshold   `json:"threshold,omitempty"`
	Rows      int                 `json:"rows"`
	Export    string              `json:"export,omitempty"`
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kpicheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var req api.FilterRequest
	fs.StringVar(&req.Start, "start", "", "first day to include (YYYY-MM-DD)")
	fs.StringVar(&req.End, "end", "", "last day to include (YYYY-MM-DD)")
	fs.StringVar(&req.Site, "site", "", "site filter (default All)")
	fs.StringVar(&req.Sector, "sector", "", "sector filter (default All)")
	fs.StringVar(&req.Cell, "cell", "", "cell filter (default All)")
	fs.StringVar(&req.Metric, "metric", "", "trend metric: traffic_gb or availability")
	dateMode := fs.String("date-mode", "", "date parsing mode; overrides the configured one")
	exportPath := fs.String("export", "", "also write the filtered rows to this .csv or .xlsx file")
	verbose := fs.Bool("v", false, "log loader diagnostics to stderr")
	pretty := fs.Bool("pretty", true, "indent the JSON output")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: kpicheck [flags] <file|dir>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	path := fs.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "kpicheck: %v\n", err)
		return exitUsage
	}
	if *dateMode != "" {
		cfg.Dataset.DateMode = *dateMode
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := infrastructure.NewLogger(stderr, config.LoggingConfig{Level: level})

	mode, err := dataprocessing.ParseDateMode(cfg.Dataset.DateMode)
	if err != nil {
		fmt.Fprintf(stderr, "kpicheck: %v\n", err)
		return exitUsage
	}

	format := ""
	if *exportPath != "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(*exportPath)), ".")
		if format != exporter.FormatCSV && format != exporter.FormatXLSX {
			fmt.Fprintf(stderr, "kpicheck: export file must end in .csv or .xlsx, got %q\n", *exportPath)
			return exitUsage
		}
	}

	path, err = files.NewDiscovery("").Resolve(path)
	if err != nil {
		fmt.Fprintf(stderr, "kpicheck: %v\n", err)
		return exitLoad
	}
	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateKPIFile(path); err != nil {
		fmt.Fprintf(stderr, "kpicheck: %v\n", err)
		return exitLoad
	}
	if *exportPath != "" {
		if err := validator.ValidateOutputDirectory(filepath.Dir(*exportPath)); err != nil {
			fmt.Fprintf(stderr, "kpicheck: %v\n", err)
			return exitLoad
		}
	}
	logger.Debug("checking KPI file", slog.String("file", path))

	loader := dataprocessing.NewLoader(dataprocessing.Options{
		DateMode:           mode,
		RequireCoordinates: cfg.Dataset.RequireCoordinates,
		CollapseWhitespace: cfg.Dataset.CollapseWhitespace,
		MaxBadDateRatio:    cfg.Dataset.MaxBadDateRatio,
	}, logger)

	ds, err := loader.LoadFile(ctx, path)
	if err != nil {
		fmt.Fprintf(stderr, "kpicheck: %s\n", describeLoadError(err))
		return exitLoad
	}

	state, err := req.ToState(domain.DefaultFilterState(ds))
	if err != nil {
		fmt.Fprintf(stderr, "kpicheck: invalid filter: %v\n", err)
		return exitUsage
	}

	pipeline := analytics.NewPipeline(analytics.Config{
		Window:                cfg.Dashboard.RollingWindow,
		AvailabilityThreshold: cfg.Dashboard.AvailabilityThreshold,
		ShowThreshold:         cfg.Dashboard.ShowThreshold,
	})
	model := pipeline.Build(ctx, ds, state)

	out := report{
		Dataset:   api.NewDatasetInfo(ds),
		State:     model.State,
		Summary:   model.Summary,
		Trend:     model.Trend,
		Threshold: model.Threshold,
		Rows:      model.Rows,
	}

	if *exportPath != "" {
		records := analytics.Filter(ds, model.State).View.Records()
		saved, err := exporter.New(nil, logger).SaveFile(*exportPath, format, records)
		if err != nil {
			fmt.Fprintf(stderr, "kpicheck: export failed: %v\n", err)
			return exitLoad
		}
		out.Export = saved
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		logger.Error("failed to write report", slog.String("error", err.Error()))
		return exitLoad
	}
	return exitOK
}

// describeLoadError renders the loader's typed errors in one line
func describeLoadError(err error) string {
	var (
		missing *dataprocessing.MissingColumnError
		dates   *dataprocessing.DateParseError
	)
	switch {
	case errors.As(err, &missing):
		return fmt.Sprintf("required column %q is missing (found: %s)", missing.Column, strings.Join(missing.Present, ", "))
	case errors.As(err, &dates):
		return fmt.Sprintf("%d of %d values in column %q are not dates (limit %.0f%%)",
			dates.Bad, dates.Total, dates.Column, dates.MaxRatio*100)
	default:
		return err.Error()
	}
}
