package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"kpidash/pkg/contracts/domain"
)

// utf8BOM lets Excel detect UTF-8 site names
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes a BOM, the header row and one row per record to w
func WriteCSV(w io.Writer, records []domain.Record) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		if err := cw.Write(RecordRow(rec)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
