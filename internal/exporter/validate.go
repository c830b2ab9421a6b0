package exporter

import (
	"errors"
	"fmt"
	"strings"

	"spiroexport/pkg/contracts/domain"
)

// ErrInvalidDataset is matched by every dataset validation failure.
var ErrInvalidDataset = errors.New("invalid dataset")

// MaxProblems caps the number of problems collected by Validate.
const MaxProblems = 50

// Problem reasons.
const (
	ReasonMissingColumn    = "missing column"
	ReasonLengthMismatch   = "length mismatch"
	ReasonUnsupportedValue = "unsupported value"
)

// Problem describes one defect in a dataset.
type Problem struct {
	Column string `json:"column"`
	Row    *int   `json:"row,omitempty"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

func (p Problem) String() string {
	var b strings.Builder
	b.WriteString(p.Column)
	if p.Row != nil {
		fmt.Fprintf(&b, "[%d]", *p.Row)
	}
	b.WriteString(": ")
	b.WriteString(p.Reason)
	if p.Detail != "" {
		b.WriteString(" (")
		b.WriteString(p.Detail)
		b.WriteString(")")
	}
	return b.String()
}

// ValidationError lists the problems that make a dataset unexportable.
type ValidationError struct {
	Problems  []Problem `json:"problems"`
	Truncated bool      `json:"truncated,omitempty"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	msg := fmt.Sprintf("%s: %s", ErrInvalidDataset, strings.Join(parts, "; "))
	if e.Truncated {
		msg += "; ..."
	}
	return msg
}

// Is makes errors.Is(err, ErrInvalidDataset) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDataset
}

func (e *ValidationError) add(p Problem) bool {
	if len(e.Problems) >= MaxProblems {
		e.Truncated = true
		return false
	}
	e.Problems = append(e.Problems, p)
	return true
}

// Validate checks that every export column is present, that all columns have
// the length of domain.RowCountColumn and that every value has a textual form.
// Columns outside domain.Columns are ignored.
func Validate(ds domain.Dataset) error {
	verr := &ValidationError{}

	for _, col := range domain.Columns {
		if _, ok := ds[col]; !ok {
			verr.add(Problem{Column: col, Reason: ReasonMissingColumn})
		}
	}

	n := ds.Len()
	for _, col := range domain.Columns {
		values, ok := ds[col]
		if !ok {
			continue
		}
		if len(values) != n {
			verr.add(Problem{
				Column: col,
				Reason: ReasonLengthMismatch,
				Detail: fmt.Sprintf("got %d values, want %d", len(values), n),
			})
			continue
		}
		for i, v := range values {
			if _, ok := formatValue(v); ok {
				continue
			}
			row := i
			if !verr.add(Problem{
				Column: col,
				Row:    &row,
				Reason: ReasonUnsupportedValue,
				Detail: fmt.Sprintf("%T", v),
			}) {
				break
			}
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}
