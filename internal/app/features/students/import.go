// internal/app/features/students/import.go
package students

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dalemusser/clubhouse/internal/app/features/apierr"
	studentstore "github.com/dalemusser/clubhouse/internal/app/store/students"
	"github.com/dalemusser/clubhouse/internal/app/system/csvutil"
	"github.com/dalemusser/clubhouse/internal/app/system/flash"
	"github.com/dalemusser/clubhouse/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleImport handles POST /api/students/import. The body is a CSV file
// (multipart field "file", or the raw request body). Nothing is written
// when any row is invalid.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, csvutil.MaxUploadSize)

	src, closeSrc, err := importSource(r)
	if err != nil {
		apierr.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	defer closeSrc()

	parsed, err := csvutil.ParseStudentCSV(src, csvutil.ParseOptions{MaxRows: csvutil.MaxRows})
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.Is(err, csvutil.ErrTooManyRows):
			apierr.Fail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("at most %d rows per file", csvutil.MaxRows))
		case errors.As(err, &tooBig):
			apierr.Fail(w, http.StatusRequestEntityTooLarge, "file too large")
		default:
			apierr.Fail(w, http.StatusBadRequest, "could not read csv")
		}
		return
	}
	if parsed.HasErrors() {
		apierr.Write(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   fmt.Sprintf("%d invalid row(s)", len(parsed.Errors)),
			"rows":    parsed.Errors,
		})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "import students")
	defer cancel()

	inputs := make([]studentstore.Input, len(parsed.Rows))
	for i, row := range parsed.Rows {
		inputs[i] = studentstore.Input{
			Name:          row.Name,
			Email:         row.Email,
			StudentNumber: row.StudentNumber,
			Major:         row.Major,
		}
	}
	res, err := h.Students.Import(ctx, inputs)
	if err != nil {
		apierr.FromError(w, h.Log, "import students", err)
		return
	}
	h.Log.Info("students imported",
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", len(res.Failed)))
	h.Flash.Add(w, r, flash.Success, fmt.Sprintf("Imported %d students", res.Created))
	apierr.OK(w, http.StatusOK, map[string]any{
		"created": res.Created,
		"skipped": res.Skipped,
		"failed":  res.Failed,
	})
}

func importSource(r *http.Request) (io.Reader, func(), error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, nil, errors.New("multipart field \"file\" is required")
		}
		return f, func() { _ = f.Close() }, nil
	}
	if r.Body == nil {
		return nil, nil, errors.New("empty body")
	}
	return r.Body, func() {}, nil
}
