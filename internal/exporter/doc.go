// Package exporter turns a spirometry Dataset into a downloadable document.
//
// The package contains three main components:
//
// Export / Write: serialize a Dataset as CSV text. The header is the fixed
// 24-column list from domain.Columns and every record follows the same order,
// regardless of the key order of the input mapping. Export is a pure function;
// calling it twice with the same dataset yields identical bytes.
//
// CSVWriter: persists an export under a base directory, with an optional UTF-8
// BOM for spreadsheet compatibility.
//
// ExportXLSX: writes the same header and records into a single-sheet workbook.
//
// Every entry point validates the dataset before producing output. A missing
// column, a length mismatch or a value without a textual form yields an error
// matching ErrInvalidDataset, and no partial output is produced.
//
// Example usage:
//
//	data, err := exporter.Export(ds)
//	if errors.Is(err, exporter.ErrInvalidDataset) {
//		// report err.(*exporter.ValidationError).Problems to the caller
//	}
//
//	dl, err := exporter.NewDownload(ds, exporter.Options{})
//	w.Header().Set("Content-Type", dl.ContentType)
package exporter
