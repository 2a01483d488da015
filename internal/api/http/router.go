package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/judging/internal/auth/middleware"
	"github.com/mind-engage/judging/internal/judging"
	"github.com/mind-engage/judging/internal/rbac"
)

type RouterOptions struct {
	CORSOrigins []string
	// Quiet drops per-request access logging (tests).
	Quiet bool
}

// NewRouter mounts the judging API under /api.
func NewRouter(svc *judging.Service, authSvc *auth.AuthService, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	if !opts.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(recoverJSON)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(methodNotAllowedHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	r.Route("/api", func(ar chi.Router) {
		ar.NotFound(notFoundHandler)
		ar.MethodNotAllowed(methodNotAllowedHandler)

		ar.Post("/auth/admin-login", AdminLoginHandler(svc, authSvc))
		ar.Post("/auth/eval-login", EvaluatorLoginHandler(svc, authSvc))

		ar.With(auth.OptionalJWT(authSvc)).Get("/data", GetDataHandler(svc))

		// Protected API (JWT → role in context → RBAC)
		ar.Group(func(pr chi.Router) {
			pr.Use(auth.JWTMiddleware(authSvc))
			pr.Use(auth.RequireLiveEvaluator(svc.EvaluatorExists))

			// Admin: event setup
			pr.With(rbac.Require(rbac.PermSettingsWrite)).Put("/settings", UpdateSettingsHandler(svc))

			pr.With(rbac.Require(rbac.PermProjectWrite)).Route("/projects", func(sr chi.Router) {
				sr.Post("/", CreateProjectHandler(svc))
				sr.Post("/bulk", BulkUpsertProjectsHandler(svc))
				sr.Put("/{id}", SaveProjectHandler(svc))
				sr.Delete("/{id}", DeleteProjectHandler(svc))
			})
			pr.With(rbac.Require(rbac.PermEvaluatorWrite)).Route("/evaluators", func(sr chi.Router) {
				sr.Post("/", CreateEvaluatorHandler(svc))
				sr.Post("/bulk", BulkUpsertEvaluatorsHandler(svc))
				sr.Put("/{id}", SaveEvaluatorHandler(svc))
				sr.Delete("/{id}", DeleteEvaluatorHandler(svc))
			})
			pr.Route("/panels", func(sr chi.Router) {
				sr.With(rbac.Require(rbac.PermPanelView)).Get("/claims", PanelClaimsHandler(svc))
				sr.Group(func(wr chi.Router) {
					wr.Use(rbac.Require(rbac.PermPanelWrite))
					wr.Post("/", CreatePanelHandler(svc))
					wr.Put("/{id}", SavePanelHandler(svc))
					wr.Delete("/{id}", DeletePanelHandler(svc))
				})
			})

			// Admin: scoring views
			pr.With(rbac.Require(rbac.PermScoresView)).Get("/scores", RankingsHandler(svc))
			pr.With(rbac.Require(rbac.PermScoresExport)).Get("/scores/export.csv", ExportScoresHandler(svc))
			pr.With(rbac.Require(rbac.PermScoresView)).Get("/scores/{projectId}", ProjectDetailHandler(svc))

			// Admin: maintenance
			pr.With(rbac.Require(rbac.PermResultsClear)).Delete("/results", ClearResultsHandler(svc))
			pr.With(rbac.Require(rbac.PermMaintenance)).Post("/admin/finalization/reset", ResetFinalizationHandler(svc))
			pr.With(rbac.Require(rbac.PermMaintenance)).Post("/admin/reset", ResetAllHandler(svc))
			pr.With(rbac.Require(rbac.PermMaintenance)).Get("/admin/backups", ListBackupsHandler(svc))
			pr.With(rbac.Require(rbac.PermMaintenance)).Get("/admin/backups/*", BackupFileHandler(svc))

			// Evaluator flow
			pr.With(rbac.Require(rbac.PermResultSubmit)).Post("/results", SubmitResultHandler(svc))
			pr.With(rbac.Require(rbac.PermAssignments)).Get("/evaluator/assignments", AssignmentsHandler(svc))
			pr.With(rbac.Require(rbac.PermFinalize)).Post("/evaluator/finalize", FinalizeHandler(svc))
			pr.With(rbac.Require(rbac.PermProfile)).Post("/evaluator/profile", UpdateProfileHandler(svc))
		})
	})
	return r
}
