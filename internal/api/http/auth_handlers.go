package http

import (
	"errors"
	"net/http"

	auth "github.com/mind-engage/judging/internal/auth/middleware"
	"github.com/mind-engage/judging/internal/judging"
)

// POST /api/auth/admin-login  { "email": "...", "password": "..." }
func AdminLoginHandler(svc *judging.Service, a *auth.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := svc.AuthenticateAdmin(r.Context(), req.Email, req.Password); err != nil {
			if errors.Is(err, judging.ErrInvalidCredentials) {
				writeErrorMsg(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			writeError(w, r, err)
			return
		}
		tok, err := a.IssueAdmin()
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, map[string]any{"token": tok})
	}
}

// POST /api/auth/eval-login  { "email": "...", "code": "..." }
func EvaluatorLoginHandler(svc *judging.Service, a *auth.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			Code  string `json:"code"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		ev, err := svc.AuthenticateEvaluator(r.Context(), req.Email, req.Code)
		if err != nil {
			if errors.Is(err, judging.ErrInvalidCredentials) {
				writeErrorMsg(w, http.StatusUnauthorized, "Invalid email or access code")
				return
			}
			writeError(w, r, err)
			return
		}
		tok, err := a.IssueEvaluator(ev.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ev.Code = ""
		writeOK(w, map[string]any{"token": tok, "evaluator": ev})
	}
}
