package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/judging/internal/judging"
)

func createHandler[T any](key string, create func(context.Context, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		out, err := create(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, key: out})
	}
}

// saveHandler upserts under the {id} path parameter; an id in the body is
// ignored.
func saveHandler[T any](key string, save func(context.Context, string, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		out, err := save(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, map[string]any{key: out})
	}
}

func deleteHandler(del func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := del(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, nil)
	}
}

// ---- projects ----

func CreateProjectHandler(svc *judging.Service) http.HandlerFunc {
	return createHandler("project", svc.CreateProject)
}

func SaveProjectHandler(svc *judging.Service) http.HandlerFunc {
	return saveHandler("project", svc.SaveProject)
}

func DeleteProjectHandler(svc *judging.Service) http.HandlerFunc {
	return deleteHandler(svc.DeleteProject)
}

// ---- evaluators ----

func CreateEvaluatorHandler(svc *judging.Service) http.HandlerFunc {
	return createHandler("evaluator", svc.CreateEvaluator)
}

func SaveEvaluatorHandler(svc *judging.Service) http.HandlerFunc {
	return saveHandler("evaluator", svc.SaveEvaluator)
}

func DeleteEvaluatorHandler(svc *judging.Service) http.HandlerFunc {
	return deleteHandler(svc.DeleteEvaluator)
}
