package population

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apierrors "spiroexport/internal/errors"
	"spiroexport/pkg/contracts/domain"
)

// Supported population file extensions.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// ErrUnsupportedFile is returned for population files that are neither CSV
// nor XLSX.
var ErrUnsupportedFile = errors.New("unsupported population file")

// Load reads the population file at path. A missing file is reported as a
// not-found error.
func Load(path string) ([]domain.Subject, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ExtCSV && ext != ExtXLSX {
		return nil, apierrors.NewConfigError("population file must be .csv or .xlsx",
			fmt.Errorf("%w: %s", ErrUnsupportedFile, path)).WithContext("path", path)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, apierrors.NewNotFoundError("population file").WithContext("path", path)
	}

	if ext == ExtXLSX {
		return LoadXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apierrors.NewStorageError("failed to open population file", err).WithContext("path", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a population table in CSV form.
func ReadCSV(r io.Reader) ([]domain.Subject, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apierrors.NewParsingError("population file is empty", err)
		}
		return nil, apierrors.NewParsingError("failed to read population header", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var subjects []domain.Subject
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apierrors.NewParsingError("failed to read population row", err).WithContext("line", line)
		}
		subjects = append(subjects, parseSubject(record, index))
	}
	return subjects, nil
}

// LoadXLSX parses the first sheet of a population workbook.
func LoadXLSX(path string) ([]domain.Subject, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apierrors.NewStorageError("failed to open population workbook", err).WithContext("path", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apierrors.NewParsingError("population workbook has no sheets", nil).WithContext("path", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apierrors.NewParsingError("failed to read population sheet", err).WithContext("sheet", sheets[0])
	}
	if len(rows) == 0 {
		return nil, apierrors.NewParsingError("population workbook is empty", nil).WithContext("path", path)
	}

	index, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	subjects := make([]domain.Subject, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		subjects = append(subjects, parseSubject(row, index))
	}
	return subjects, nil
}

// columnIndex maps every export column to its position in header.
func columnIndex(header []string) ([]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	index := make([]int, len(domain.Columns))
	var missing []string
	for j, col := range domain.Columns {
		i, ok := positions[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		index[j] = i
	}
	if len(missing) > 0 {
		return nil, apierrors.NewParsingError(
			fmt.Sprintf("population header is missing columns: %s", strings.Join(missing, ", ")), nil)
	}
	return index, nil
}

// parseSubject converts one table row. Cells beyond the end of a short row
// count as empty.
func parseSubject(record []string, index []int) domain.Subject {
	s := domain.Subject{
		Values:   make([]any, len(domain.Columns)),
		Complete: true,
	}

	for j, col := range domain.Columns {
		var cell string
		if i := index[j]; i < len(record) {
			cell = strings.TrimSpace(record[i])
		}
		if isMissing(cell) {
			s.Complete = false
			s.Values[j] = ""
			continue
		}

		v := parseCell(cell)
		s.Values[j] = v

		switch col {
		case domain.ColGender2:
			s.Gender = cell
		case domain.ColAge:
			s.Age, s.Complete = numeric(v, s.Complete)
		case domain.ColHeight:
			s.Height, s.Complete = numeric(v, s.Complete)
		case domain.ColWeight:
			s.Weight, s.Complete = numeric(v, s.Complete)
		case domain.ColBMI:
			s.BMI, s.Complete = numeric(v, s.Complete)
		}
	}
	return s
}

// parseCell keeps integers as int64, other numbers as float64 and everything
// else as text.
func parseCell(cell string) any {
	if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}

// numeric reads a filter column. A non-numeric value makes the subject
// incomplete.
func numeric(v any, complete bool) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), complete
	case float64:
		return x, complete
	default:
		return 0, false
	}
}

func isMissing(cell string) bool {
	switch strings.ToLower(cell) {
	case "", "nan", "na", "null":
		return true
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
