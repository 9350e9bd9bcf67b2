// internal/app/system/csvutil/students.go
package csvutil

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dalemusser/clubhouse/internal/app/system/inputval"
	"github.com/dalemusser/clubhouse/internal/app/system/normalize"
)

// ErrTooManyRows is returned when the file exceeds ParseOptions.MaxRows.
var ErrTooManyRows = errors.New("csv has too many rows")

// StudentRow is one normalized row of a student roster file:
//
//	Name,Email,Student Number,Major
//
// Only Name and Email are required.
type StudentRow struct {
	Line          int
	Name          string
	Email         string
	StudentNumber string
	Major         string
}

// RowError describes one rejected line.
type RowError struct {
	Line   int    `json:"line"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

func (e RowError) String() string {
	if e.Email == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d (%s): %s", e.Line, e.Email, e.Reason)
}

// ParseResult holds the valid rows and every rejected line.
type ParseResult struct {
	Rows   []StudentRow
	Errors []RowError
}

// HasErrors reports whether any line was rejected.
func (r *ParseResult) HasErrors() bool { return len(r.Errors) > 0 }

// Summary lists up to max errors, one per line.
func (r *ParseResult) Summary(max int) string {
	if !r.HasErrors() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d invalid row(s)", len(r.Errors))
	for i, e := range r.Errors {
		if i == max {
			fmt.Fprintf(&b, "\n… and %d more", len(r.Errors)-max)
			break
		}
		b.WriteString("\n")
		b.WriteString(e.String())
	}
	return b.String()
}

// ParseOptions configures ParseStudentCSV.
type ParseOptions struct {
	MaxRows int // 0 means unlimited
}

// DefaultParseOptions returns options with no row limit.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{}
}

// ParseStudentCSV reads a roster file. A header row is detected and
// skipped, a UTF-8 BOM is ignored, blank rows are skipped and emails that
// repeat inside the file are rejected. It never writes anywhere.
func ParseStudentCSV(r io.Reader, opts ParseOptions) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	res := &ParseResult{}
	seen := make(map[string]int)
	first := true
	data := 0

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				res.Errors = append(res.Errors, RowError{Line: pe.Line, Reason: pe.Err.Error()})
				continue
			}
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if first {
			first = false
			rec[0] = strings.TrimPrefix(rec[0], "\uFEFF")
			if isHeader(rec) {
				continue
			}
		}

		row := toRow(line, rec)
		if row.Name == "" && row.Email == "" && row.StudentNumber == "" && row.Major == "" {
			continue
		}
		data++
		if opts.MaxRows > 0 && data > opts.MaxRows {
			return nil, ErrTooManyRows
		}

		if err := inputval.First(
			inputval.Required("name", row.Name),
			inputval.Email("email", row.Email),
		); err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Email: row.Email, Reason: err.Error()})
			continue
		}
		key := normalize.Email(row.Email)
		if prev, dup := seen[key]; dup {
			res.Errors = append(res.Errors, RowError{
				Line:   line,
				Email:  row.Email,
				Reason: fmt.Sprintf("duplicate email (first on line %d)", prev),
			})
			continue
		}
		seen[key] = line
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func isHeader(rec []string) bool {
	if len(rec) < 2 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(rec[0]))
	second := strings.ToLower(strings.TrimSpace(rec[1]))
	return (first == "name" || first == "full name") && second == "email"
}

func toRow(line int, rec []string) StudentRow {
	field := func(i int) string {
		if i < len(rec) {
			return normalize.Name(rec[i])
		}
		return ""
	}
	return StudentRow{
		Line:          line,
		Name:          field(0),
		Email:         strings.TrimSpace(field(1)),
		StudentNumber: field(2),
		Major:         field(3),
	}
}
