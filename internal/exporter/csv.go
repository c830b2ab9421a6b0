package exporter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"spiroexport/pkg/contracts/domain"
)

const (
	// Filename is the name offered for a CSV download.
	Filename = "export.csv"
	// ContentType tags a CSV download.
	ContentType = "text/csv;charset=utf-8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures CSV writing behavior
type Options struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Header returns the CSV header fields. The slice is a copy of domain.Columns.
func Header() []string {
	header := make([]string, len(domain.Columns))
	copy(header, domain.Columns)
	return header
}

// Write validates ds and writes it to w as a CSV document: one header line
// followed by one line per record, each terminated by "\n". Values are written
// verbatim unless they hold a comma, a double quote or a line break, in which
// case they are quoted with inner quotes doubled. Nothing is written when
// validation fails.
func Write(w io.Writer, ds domain.Dataset, opts Options) error {
	if err := Validate(ds); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)

	if opts.BOMPrefix {
		if _, err := bw.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	if err := writeLine(bw, Header()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	n := ds.Len()
	fields := make([]string, len(domain.Columns))
	for i := 0; i < n; i++ {
		for j, v := range ds.Record(i) {
			fields[j], _ = formatValue(v)
		}
		if err := writeLine(bw, fields); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// writeLine writes fields joined by commas and a trailing "\n". bufio keeps
// the first write error, so only the last write is checked.
func writeLine(bw *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			bw.WriteByte(',')
		}
		if needsQuote(field) {
			bw.WriteByte('"')
			bw.WriteString(strings.ReplaceAll(field, `"`, `""`))
			bw.WriteByte('"')
			continue
		}
		bw.WriteString(field)
	}
	_, err := bw.WriteString("\n")
	return err
}

// needsQuote reports whether a CSV reader would split or misread field when
// written bare.
func needsQuote(field string) bool {
	return strings.ContainsAny(field, ",\"\r\n")
}

// Export returns the CSV document for ds.
func Export(ds domain.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, ds, Options{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Download is a generated document ready to be handed to a client.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
	Records     int
}

// NewDownload builds the export.csv download for ds.
func NewDownload(ds domain.Dataset, opts Options) (*Download, error) {
	var buf bytes.Buffer
	if err := Write(&buf, ds, opts); err != nil {
		return nil, err
	}
	return &Download{
		Filename:    Filename,
		ContentType: ContentType,
		Body:        buf.Bytes(),
		Records:     ds.Len(),
	}, nil
}

// CSVWriter persists exports below a base directory.
type CSVWriter struct {
	baseDir string
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(baseDir string) *CSVWriter {
	return &CSVWriter{baseDir: baseDir}
}

// WriteDataset writes ds to filePath and returns the resolved path. The
// dataset is validated before the file is created, so an invalid dataset
// never truncates an existing export.
func (w *CSVWriter) WriteDataset(filePath string, ds domain.Dataset, opts Options) (string, error) {
	if err := Validate(ds); err != nil {
		return "", err
	}

	fullPath := w.resolvePath(filePath)

	slog.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", ds.Len()))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}

	if err := Write(file, ds, opts); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return fullPath, nil
}

// resolvePath resolves a path against the base directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filePath == "" {
		filePath = Filename
	}
	if filepath.IsAbs(filePath) || w.baseDir == "" {
		return filePath
	}
	return filepath.Join(w.baseDir, filePath)
}
