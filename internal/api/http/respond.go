package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mind-engage/judging/internal/judging"
)

const maxBodyBytes = 4 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "err", err)
	}
}

func writeOK(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var ve *judging.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, judging.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, judging.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, judging.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, judging.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeErrorMsg(w, status, "Internal Server Error")
		return
	}
	writeErrorMsg(w, status, err.Error())
}

// decodeJSON reads a bounded JSON body into v. Decode failures surface as
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return &judging.ValidationError{Problems: []string{fmt.Sprintf("invalid JSON body: %v", err)}}
	}
	return nil
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	slog.Info("endpoint not found", "method", r.Method, "path", r.URL.Path)
	writeErrorMsg(w, http.StatusNotFound, "API Endpoint Not Found")
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeErrorMsg(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// recoverJSON turns handler panics into a JSON 500.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("panic in handler", "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
				writeErrorMsg(w, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
