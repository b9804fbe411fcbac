package dataprocessing

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/blake2b"

	"kpidash/pkg/contracts/domain"
)

// Options configures a Loader
type Options struct {
	DateMode           DateMode
	RequireCoordinates bool
	CollapseWhitespace bool
	// MaxBadDateRatio is the largest share of site-bearing rows that may have
	// an unparsable date before the whole load is rejected
	MaxBadDateRatio float64
}

// DefaultOptions returns the loader defaults
func DefaultOptions() Options {
	return Options{
		DateMode:           DateModeAuto,
		CollapseWhitespace: true,
		MaxBadDateRatio:    0.1,
	}
}

// Loader reads, validates and cleans KPI files into Datasets
type Loader struct {
	opts    Options
	schema  Schema
	cleaner *Cleaner
	logger  *slog.Logger
}

// NewLoader creates a loader
func NewLoader(opts Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DateMode == "" {
		opts.DateMode = DateModeAuto
	}
	return &Loader{
		opts:    opts,
		schema:  NewSchema(opts.RequireCoordinates),
		cleaner: NewCleaner(opts.DateMode, logger),
		logger:  logger.With(slog.String("component", "loader")),
	}
}

// Schema returns the schema the loader validates against
func (l *Loader) Schema() Schema {
	return l.schema
}

// LoadFile loads a dataset from a path on disk
func (l *Loader) LoadFile(ctx context.Context, path string) (*domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, unreadable(filepath.Base(path), err)
	}
	defer f.Close()
	return l.Load(ctx, f, filepath.Base(path))
}

// LoadBytes loads a dataset from an in-memory buffer
func (l *Loader) LoadBytes(ctx context.Context, data []byte, name string) (*domain.Dataset, error) {
	return l.Load(ctx, bytes.NewReader(data), name)
}

// Load reads r as a tabular file called name and returns the cleaned dataset.
// Unreadable input, a header without rows, a missing required column and an
// excessive share of unparsable dates are fatal.
func (l *Loader) Load(ctx context.Context, r io.Reader, name string) (*domain.Dataset, error) {
	ctx, span := otel.Tracer("kpidash/dataprocessing").Start(ctx, "dataset.load")
	defer span.End()
	span.SetAttributes(attribute.String("dataset.source", name))

	ds, err := l.load(ctx, r, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.WarnContext(ctx, "dataset rejected",
			slog.String("source", name),
			slog.String("error", err.Error()))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("dataset.rows_read", ds.Stats.RowsRead),
		attribute.Int("dataset.rows_kept", ds.Stats.RowsKept))
	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", name),
		slog.String("date_layout", ds.DateLayout),
		slog.String("checksum", ds.Checksum),
		slog.Int("rows_read", ds.Stats.RowsRead),
		slog.Int("rows_kept", ds.Stats.RowsKept),
		slog.Int("dropped_site", ds.Stats.DroppedSite),
		slog.Int("dropped_date", ds.Stats.DroppedDate),
		slog.Int("missing_traffic", ds.Stats.MissingTraffic),
		slog.Int("missing_availability", ds.Stats.MissingAvailability))
	return ds, nil
}

func (l *Loader) load(ctx context.Context, r io.Reader, name string) (*domain.Dataset, error) {
	hash, _ := blake2b.New256(nil)
	tee := io.TeeReader(r, hash)
	table, err := ReadTable(tee, name, l.opts.CollapseWhitespace)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return nil, unreadable(name, err)
	}
	if len(table.Rows) == 0 {
		return nil, &LoadError{Kind: ErrEmpty, Source: name}
	}
	if err := l.schema.Validate(table.Columns); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds := l.cleaner.Clean(table)
	if err := l.checkDates(table, ds); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	ds.Checksum = hex.EncodeToString(hash.Sum(nil))
	return ds, nil
}

// checkDates rejects loads where too many dated rows failed to parse
func (l *Loader) checkDates(table *RawTable, ds *domain.Dataset) error {
	dated := ds.Stats.RowsRead - ds.Stats.DroppedSite
	if dated == 0 || ds.Stats.DroppedDate == 0 {
		return nil
	}
	ratio := float64(ds.Stats.DroppedDate) / float64(dated)
	if ratio <= l.opts.MaxBadDateRatio {
		return nil
	}
	return &DateParseError{
		Column:   ColumnDate,
		Bad:      ds.Stats.DroppedDate,
		Total:    dated,
		MaxRatio: l.opts.MaxBadDateRatio,
		Sample:   firstBadDate(table, ds.DateLayout, l.opts.DateMode),
	}
}

func firstBadDate(table *RawTable, layout string, mode DateMode) string {
	dateIdx, siteIdx := table.Index(ColumnDate), table.Index(ColumnSite)
	for _, row := range table.Rows {
		if isBlank(field(row, siteIdx)) {
			continue
		}
		v := field(row, dateIdx)
		if _, ok := ParseDate(v, layout, mode, table.SerialDates); !ok {
			return v
		}
	}
	return ""
}
