// Package exporter writes KPI records to CSV and Excel files.
//
// WriteCSV emits comma separated rows behind a UTF-8 BOM so Excel opens them
// with the right encoding. WriteXLSX builds a single-sheet workbook with
// typed numeric cells. Exporter picks between them by format, streams to a
// writer or saves into the exports directory, and names downloads after the
// dataset and the exported scope.
//
// Missing measurements are written as empty cells, never as zero.
//
// Example usage:
//
//	exp := exporter.New(paths, logger)
//	err := exp.Write(w, exporter.FormatXLSX, view.Records())
//	path, err := exp.SaveFile("kpi_view.csv", exporter.FormatCSV, records)
package exporter
