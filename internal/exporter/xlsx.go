package exporter

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"spiroexport/pkg/contracts/domain"
)

const (
	// XLSXFilename is the name offered for a workbook download.
	XLSXFilename = "export.xlsx"
	// XLSXContentType tags a workbook download.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// XLSXSheet is the name of the single sheet in an exported workbook.
	XLSXSheet = "Export"
)

// ExportXLSX returns a workbook holding the same header and records as Export.
// Numbers stay numeric cells; everything else is written as text.
func ExportXLSX(ds domain.Dataset) ([]byte, error) {
	if err := Validate(ds); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), XLSXSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(domain.Columns))
	for i, col := range Header() {
		header[i] = col
	}
	if err := f.SetSheetRow(XLSXSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	n := ds.Len()
	row := make([]any, len(domain.Columns))
	for i := 0; i < n; i++ {
		for j, v := range ds.Record(i) {
			row[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to address record %d: %w", i, err)
		}
		if err := f.SetSheetRow(XLSXSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// NewXLSXDownload builds the export.xlsx download for ds.
func NewXLSXDownload(ds domain.Dataset) (*Download, error) {
	body, err := ExportXLSX(ds)
	if err != nil {
		return nil, err
	}
	return &Download{
		Filename:    XLSXFilename,
		ContentType: XLSXContentType,
		Body:        body,
		Records:     ds.Len(),
	}, nil
}

// cellValue maps a dataset value to what excelize should store.
func cellValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil && !math.IsInf(f, 0) {
			return f
		}
	case float64:
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			return x
		}
	case float32:
		if !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0) {
			return x
		}
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return x
	}
	s, _ := formatValue(v)
	return s
}
