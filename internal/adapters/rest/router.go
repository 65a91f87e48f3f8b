// Package rest exposes the verflow services over HTTP with a chi router.
// Handlers only translate requests and errors; every rule lives in the services.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/verflow/internal/logging"
	"github.com/example/verflow/internal/ports/primary"
)

// Services groups the primary ports the router serves.
type Services struct {
	Versions  primary.VersionService
	Branches  primary.BranchService
	Conflicts primary.ConflictService
	Workflow  primary.WorkflowService
	Retention primary.RetentionService
	Approvals primary.ApprovalService
	Audit     primary.AuditService
}

// Router creates and configures the HTTP router
type Router struct {
	services Services
	metrics  http.Handler
	logger   *zap.Logger
}

// NewRouter creates a new router instance. metrics may be nil.
func NewRouter(services Services, metrics http.Handler, logger *zap.Logger) *Router {
	return &Router{
		services: services,
		metrics:  metrics,
		logger:   logging.OrNop(logger),
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(rt.logger))
	router.Use(actorFromHeader)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if rt.metrics != nil {
		router.Handle("/metrics", rt.metrics)
	}

	h := &handler{Services: rt.services, logger: rt.logger}

	router.Route("/contents/{contentID}", func(r chi.Router) {
		r.Post("/versions", h.createVersion)
		r.Get("/versions", h.listVersions)
		r.Get("/versions/{number}", h.getVersion)
		r.Post("/versions/{number}/revert", h.revertVersion)
		r.Get("/compare", h.compareVersions)
		r.Get("/timeline", h.timeline)
		r.Get("/versions/{number}/size", h.versionSize)
		r.Get("/storage", h.storageUsage)
		r.Post("/autosaves", h.saveAutosave)
		r.Get("/autosaves/latest", h.latestAutosave)

		r.Post("/branches", h.createBranch)
		r.Get("/branches", h.listBranches)
		r.Get("/branches/{name}", h.getBranch)
		r.Delete("/branches/{name}", h.deleteBranch)
		r.Post("/merges", h.mergeBranch)

		r.Post("/transitions", h.transition)
		r.Get("/state", h.currentState)
		r.Get("/next-states", h.nextStates)
		r.Get("/history", h.history)
		r.Get("/gates/{state}", h.gateStatus)

		r.Get("/retention", h.getPolicy)
		r.Put("/retention", h.setPolicy)
		r.Post("/retention/clean", h.cleanVersions)
	})

	router.Post("/autosaves/{autosaveID}/promote", h.promoteAutosave)

	router.Get("/conflicts", h.detectConflicts)
	router.Post("/conflicts/resolve", h.resolveConflict)

	router.Get("/states", h.listStates)
	router.Post("/states", h.createState)

	router.Route("/approvals", func(r chi.Router) {
		r.Get("/workflows", h.listApprovalWorkflows)
		r.Post("/workflows", h.createApprovalWorkflow)
		r.Get("/workflows/{workflowID}", h.getApprovalWorkflow)
		r.Post("/workflows/{workflowID}/steps", h.addApprovalStep)
		r.Post("/requests", h.requestApproval)
		r.Post("/requests/{requestID}/decisions", h.recordDecision)
	})

	router.Post("/retention/clean", h.cleanAll)
	router.Get("/audit", h.listAudit)

	return router
}
