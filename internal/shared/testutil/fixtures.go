// Package testutil holds helpers shared by package tests: a capturing slog
// handler, a span recorder and spirometry population fixtures.
package testutil

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"spiroexport/pkg/contracts/domain"
)

// SubjectFixture describes one population row. Fields left at their zero
// value are still written; use Blank to leave a column empty.
type SubjectFixture struct {
	SEQN   int
	Gender string
	Age    float64
	Height float64
	Weight float64
	BMI    float64
	// Blank lists columns written as empty cells.
	Blank []string
}

// Row renders the fixture in domain.Columns order.
func (s SubjectFixture) Row() []string {
	code := "1"
	if s.Gender == domain.GenderFemale {
		code = "2"
	}
	values := map[string]string{
		domain.ColSEQN:                  strconv.Itoa(s.SEQN),
		domain.ColRawCurve:              "0.1;0.2;0.3",
		domain.ColFVCMax:                "3100",
		domain.ColFEV1:                  "2800",
		domain.ColFEV3:                  "3000",
		domain.ColFEV6:                  "3090",
		domain.ColPeakExpiratory:        "7.5",
		domain.ColMaxMidExpiratory:      "3.2",
		domain.ColPseudoPSU:             "2",
		domain.ColAge:                   formatFloat(s.Age),
		domain.ColGender2:               s.Gender,
		domain.ColGender:                code,
		domain.ColHeight:                formatFloat(s.Height),
		domain.ColWeight:                formatFloat(s.Weight),
		domain.ColBMI:                   formatFloat(s.BMI),
		domain.ColSessionBest:           "3150",
		domain.ColSessionMean:           "3050.5",
		domain.ColSessionStd:            "40.25",
		domain.ColSessionMedian:         "3060",
		domain.ColSessionIQR:            "55",
		domain.ColSessionMinimum:        "2990",
		domain.ColSessionMaximum:        "3150",
		domain.ColSessionMaxDistance:    "160",
		domain.ColSessionMedianDistance: "90",
	}
	for _, col := range s.Blank {
		values[col] = ""
	}

	row := make([]string, len(domain.Columns))
	for i, col := range domain.Columns {
		row[i] = values[col]
	}
	return row
}

// PopulationCSV renders a population file with the export columns as header.
func PopulationCSV(t *testing.T, subjects ...SubjectFixture) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(domain.Columns); err != nil {
		t.Fatalf("write fixture header: %v", err)
	}
	for _, s := range subjects {
		if err := w.Write(s.Row()); err != nil {
			t.Fatalf("write fixture row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush fixture: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// DefaultSubjects returns a small population: two subjects inside the default
// filter, one outside it and one with a missing value.
func DefaultSubjects() []SubjectFixture {
	return []SubjectFixture{
		{SEQN: 101, Gender: domain.GenderMale, Age: 12, Height: 150, Weight: 40, BMI: 17.8},
		{SEQN: 102, Gender: domain.GenderFemale, Age: 20, Height: 165, Weight: 58, BMI: 21.3},
		{SEQN: 103, Gender: domain.GenderMale, Age: 45, Height: 180, Weight: 85, BMI: 26.2},
		{SEQN: 104, Gender: domain.GenderFemale, Age: 15, Height: 160, Weight: 50, BMI: 19.5, Blank: []string{domain.ColFEV6}},
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
