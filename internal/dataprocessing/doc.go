// Package dataprocessing turns raw KPI files into cleaned, immutable Datasets.
//
// # Architecture
//
// Loading runs in a fixed sequence:
//
//  1. Reader: parses delimited text (comma, semicolon, tab or pipe) or an
//     .xlsx workbook into a RawTable with a normalized header
//  2. Schema: checks that the required columns are present
//  3. Cleaner: drops rows without a site or a parsable date and coerces the
//     numeric columns, marking failures as missing instead of zero
//
// The Loader wires the three together and rejects files where too many dates
// could not be parsed.
//
// # Usage
//
//	loader := dataprocessing.NewLoader(dataprocessing.DefaultOptions(), logger)
//	ds, err := loader.LoadFile(ctx, "kpi_data.csv")
//	if err != nil {
//	    var missing *dataprocessing.MissingColumnError
//	    if errors.As(err, &missing) {
//	        // missing.Column names the absent column
//	    }
//	}
//
// # Error Handling
//
// Fatal conditions match one of the sentinels with errors.Is:
//
//   - ErrUnreadable: the input is not tabular text or a workbook
//   - ErrEmpty: a header row with no data rows
//   - ErrMissingColumn: a required column is absent
//   - ErrTooManyBadDates: more than MaxBadDateRatio of the dates failed
//
// Row-level problems are never fatal. They are counted in Dataset.Stats.
package dataprocessing
