package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/judging/internal/judging"
)

func writePanelResult(w http.ResponseWriter, r *http.Request, status int, p judging.Panel, conflicts judging.Claims, err error) {
	var oe *judging.OverlapError
	if errors.As(err, &oe) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"ok":        false,
			"error":     err.Error(),
			"conflicts": oe.Conflicts,
		})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	body := map[string]any{"ok": true, "panel": p}
	if !conflicts.Empty() {
		body["warnings"] = conflicts
	}
	writeJSON(w, status, body)
}

// POST /api/panels
func CreatePanelHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in judging.Panel
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		p, conflicts, err := svc.CreatePanel(r.Context(), in)
		writePanelResult(w, r, http.StatusCreated, p, conflicts, err)
	}
}

// PUT /api/panels/{id}
func SavePanelHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in judging.Panel
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		p, conflicts, err := svc.SavePanel(r.Context(), chi.URLParam(r, "id"), in)
		writePanelResult(w, r, http.StatusOK, p, conflicts, err)
	}
}

func DeletePanelHandler(svc *judging.Service) http.HandlerFunc {
	return deleteHandler(svc.DeletePanel)
}

// GET /api/panels/claims?exclude=<panelId>
func PanelClaimsHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := svc.PanelClaims(r.Context(), r.URL.Query().Get("exclude"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, claims)
	}
}
