package http

import (
	"net/http"

	"github.com/mind-engage/judging/internal/judging"
	"github.com/mind-engage/judging/internal/rbac"
)

// GET /api/data  public; access codes only for admins
func GetDataHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redact := rbac.RoleFromContext(r.Context()) != rbac.RoleAdmin
		snap, err := svc.Snapshot(r.Context(), redact)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// PUT /api/settings  partial document; omitted fields are kept
func UpdateSettingsHandler(svc *judging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch judging.SettingsPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, r, err)
			return
		}
		st, err := svc.UpdateSettings(r.Context(), patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"settings": st})
	}
}
