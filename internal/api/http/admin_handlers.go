package http

import (
	"bytes"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/judging/internal/judging"
)

// GET /api/scores
func RankingsHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ranks, err := svc.Rankings(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ranks)
	}
}

// GET /api/scores/{projectId}
func ProjectDetailHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.ProjectDetail(r.Context(), chi.URLParam(r, "projectId"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// GET /api/scores/export.csv
func ExportScoresHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tbl, err := svc.Export(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := tbl.WriteCSV(&buf); err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="scores_detailed.csv"`)
		_, _ = w.Write(buf.Bytes())
	}
}

// DELETE /api/results
func ClearResultsHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ClearResults(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, nil)
	}
}

// POST /api/admin/finalization/reset  { "evaluatorId": "" } reopens everyone
func ResetFinalizationHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			EvaluatorID string `json:"evaluatorId"`
		}
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, err)
				return
			}
		}
		n, err := svc.ResetFinalization(r.Context(), req.EvaluatorID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"reopened": n})
	}
}

// POST /api/admin/reset  { "reason": "..." }
func ResetAllHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reason string `json:"reason"`
		}
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, err)
				return
			}
		}
		keys, err := svc.ResetAll(r.Context(), req.Reason)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"backups": keys})
	}
}

// GET /api/admin/backups
func ListBackupsHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sets, err := svc.Backups(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"backups": sets})
	}
}

// GET /api/admin/backups/{name}/{file}
func BackupFileHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := path.Join("backups", chi.URLParam(r, "*"))
		b, err := svc.BackupFile(r.Context(), key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		switch path.Ext(key) {
		case ".json":
			w.Header().Set("Content-Type", "application/json")
		case ".csv":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		default:
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
		_, _ = w.Write(b)
	}
}
