package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"kpidash/pkg/contracts/domain"
)

// SheetName is the worksheet that holds exported records
const SheetName = "KPI"

// WriteXLSX writes records as a single-sheet workbook. Numeric columns are
// stored as numbers; missing measurements are left blank.
func WriteXLSX(w io.Writer, records []domain.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, 0, len(Headers()))
	for _, h := range Headers() {
		header = append(header, h)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			formatDate(r.Date),
			r.Site,
			r.Sector,
			r.Cell,
			measureCell(r.TrafficGB),
			measureCell(r.Availability),
			measureCell(r.Lat),
			measureCell(r.Lon),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// measureCell returns nil for missing values so the cell stays empty
func measureCell(m domain.Measure) interface{} {
	if !m.Valid {
		return nil
	}
	return m.Value
}
