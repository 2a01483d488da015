package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mind-engage/judging/internal/rbac"
)

// EvaluatorExists reports whether an evaluator record is still present.
type EvaluatorExists func(ctx context.Context, id string) (bool, error)

// RequireLiveEvaluator rejects evaluator tokens whose evaluator record has
// since been deleted. Admin requests pass through untouched.
func RequireLiveEvaluator(exists EvaluatorExists) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if rbac.RoleFromContext(ctx) != rbac.RoleEvaluator {
				next.ServeHTTP(w, r)
				return
			}
			ok, err := exists(ctx, SubjectFromContext(ctx))
			switch {
			case err != nil:
				slog.Error("evaluator lookup failed", "err", err)
				rbac.Deny(w, http.StatusInternalServerError, "evaluator lookup failed")
			case !ok:
				rbac.Deny(w, http.StatusForbidden, "Unauthorized")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
