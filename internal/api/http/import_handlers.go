package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mind-engage/judging/internal/judging"
)

// readRecords accepts either a raw JSON array body or a multipart upload
// (file=) holding a JSON array or a CSV with a header row.
func readRecords[T any](w http.ResponseWriter, r *http.Request, fromCSV func(rec []string, idx map[string]int) T) ([]T, error) {
	var rows []T
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			return nil, &judging.ValidationError{Problems: []string{"read body: " + err.Error()}}
		}
		if t := strings.TrimSpace(string(body)); !strings.HasPrefix(t, "[") {
			return nil, &judging.ValidationError{Problems: []string{"Request body must be an array"}}
		}
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, &judging.ValidationError{Problems: []string{"bad json: " + err.Error()}}
		}
		return rows, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, &judging.ValidationError{Problems: []string{"file required"}}
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	// sniff JSON vs CSV by first non-space byte
	if t := strings.TrimSpace(string(data)); strings.HasPrefix(t, "[") {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, &judging.ValidationError{Problems: []string{"bad json: " + err.Error()}}
		}
		return rows, nil
	}
	rows, err = parseCSV(strings.NewReader(string(data)), fromCSV)
	if err != nil {
		return nil, &judging.ValidationError{Problems: []string{"bad csv: " + err.Error()}}
	}
	return rows, nil
}

func parseCSV[T any](r io.Reader, fromCSV func(rec []string, idx map[string]int) T) ([]T, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var rows []T
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, fromCSV(rec, idx))
	}
	return rows, nil
}

// col returns the named column, or "" when the header or cell is absent.
func col(rec []string, idx map[string]int, names ...string) string {
	for _, n := range names {
		if i, ok := idx[n]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
	}
	return ""
}

func projectFromCSV(rec []string, idx map[string]int) judging.Project {
	return judging.Project{
		ID:       col(rec, idx, "id"),
		Title:    col(rec, idx, "title", "name"),
		Category: col(rec, idx, "category", "theme"),
		Team:     col(rec, idx, "team"),
		School:   col(rec, idx, "school"),
		Contact:  col(rec, idx, "contact"),
	}
}

func evaluatorFromCSV(rec []string, idx map[string]int) judging.Evaluator {
	return judging.Evaluator{
		ID:        col(rec, idx, "id"),
		Name:      col(rec, idx, "name"),
		Email:     col(rec, idx, "email"),
		Expertise: col(rec, idx, "expertise"),
		Notes:     col(rec, idx, "notes"),
		Code:      col(rec, idx, "code"),
	}
}

func writeBulkReport(w http.ResponseWriter, rep judging.BulkReport) {
	extra := map[string]any{"upserted": rep.Upserted}
	if rep.Partial() {
		extra["warning"] = "Some records failed to import (likely validation/duplicates)"
		extra["failed"] = rep.Failed
	}
	writeOK(w, extra)
}

// POST /api/projects/bulk
func BulkUpsertProjectsHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := readRecords(w, r, projectFromCSV)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeBulkReport(w, svc.BulkUpsertProjects(r.Context(), rows))
	}
}

// POST /api/evaluators/bulk
func BulkUpsertEvaluatorsHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := readRecords(w, r, evaluatorFromCSV)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeBulkReport(w, svc.BulkUpsertEvaluators(r.Context(), rows))
	}
}
