package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kpidash/internal/config"
	"kpidash/pkg/contracts/domain"
)

// Supported formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrUnsupportedFormat is returned for formats other than csv and xlsx
var ErrUnsupportedFormat = fmt.Errorf("unsupported export format")

// Exporter writes record sets in the requested format
type Exporter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// New creates an exporter. paths may be nil; SaveFile then takes names as
// given instead of placing them in the exports directory.
func New(paths *config.Paths, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		paths:  paths,
		logger: logger.With(slog.String("component", "exporter")),
	}
}

func encoder(format string) (func(io.Writer, []domain.Record) error, error) {
	switch format {
	case FormatCSV:
		return WriteCSV, nil
	case FormatXLSX:
		return WriteXLSX, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// ContentType returns the MIME type of format
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds a download name such as "kpi_data_drill_2024-01-02.xlsx"
func Filename(source, scope string, date *time.Time, format string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "kpi"
	}
	name := base + "_" + scope
	if date != nil {
		name += "_" + formatDate(*date)
	}
	return name + "." + format
}

// Write encodes records to w
func (e *Exporter) Write(w io.Writer, format string, records []domain.Record) error {
	encode, err := encoder(format)
	if err != nil {
		return err
	}
	return encode(w, records)
}

// SaveFile writes records to name and returns the full path. Relative names
// land in the exports directory. The file is written under a temporary name
// and renamed, so readers never see a partial export.
func (e *Exporter) SaveFile(name, format string, records []domain.Record) (string, error) {
	encode, err := encoder(format)
	if err != nil {
		return "", err
	}
	path := name
	if !filepath.IsAbs(name) && e.paths != nil {
		path = e.paths.ExportPath(name)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, records); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}

	e.logger.Info("Export saved",
		slog.String("path", path),
		slog.String("format", format),
		slog.Int("record_count", len(records)))
	return path, nil
}
