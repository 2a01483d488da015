package http

import (
	"net/http"

	auth "github.com/mind-engage/judging/internal/auth/middleware"
	"github.com/mind-engage/judging/internal/judging"
)

// POST /api/results  evaluator saves or replaces their own result
func SubmitResultHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in judging.Result
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		res, err := svc.SubmitResult(r.Context(), auth.SubjectFromContext(r.Context()), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"result": res})
	}
}

// GET /api/evaluator/assignments
func AssignmentsHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wl, err := svc.Assignments(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, wl)
	}
}

// POST /api/evaluator/finalize  { "evaluatorId": "..." }
func FinalizeHandler(svc *judging.Service) http.HandlerFunc {
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
		wl, err := svc.Finalize(r.Context(), auth.SubjectFromContext(r.Context()), req.EvaluatorID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"state": wl.State, "progress": wl.Progress})
	}
}

// POST /api/evaluator/profile  { "evaluator": { "id", "name", "expertise", "notes" } }
// A flat profile body is accepted as well.
func UpdateProfileHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Evaluator *judging.Profile `json:"evaluator"`
			judging.Profile
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		p := req.Profile
		if req.Evaluator != nil {
			p = *req.Evaluator
		}
		ev, err := svc.UpdateProfile(r.Context(), auth.SubjectFromContext(r.Context()), p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ev.Code = ""
		writeOK(w, map[string]any{"evaluator": ev})
	}
}
