package governance

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with the governance API routes. Mount it
// under the API prefix, e.g. /api/governance/v1alpha1.
func NewRouter(orch *Orchestrator, registry *VersionRegistry, auditStore *AuditStore, audit *AuditTrail) chi.Router {
	r := chi.NewRouter()

	r.Route("/categories/{category}", func(r chi.Router) {
		r.Post("/requests", createRequestHandler(orch))
		r.Get("/default", getDefaultHandler(orch))
		r.Get("/history", getHistoryHandler(orch))
		r.Get("/impact", previewImpactHandler(orch))
		r.Post("/versions", registerVersionHandler(registry, audit))
		r.Get("/versions", listVersionsHandler(registry))
		r.Get("/audit", listCategoryAuditHandler(auditStore))
	})

	r.Route("/requests", func(r chi.Router) {
		r.Get("/", listRequestsHandler(orch))
		r.Get("/{id}", getRequestHandler(orch))
		r.Post("/{id}/approvals", submitApprovalHandler(orch))
		r.Post("/{id}/confirm", confirmRequestHandler(orch))
		r.Post("/{id}/cancel", cancelRequestHandler(orch))
		r.Get("/{id}/audit", listRequestAuditHandler(auditStore))
	})

	r.Get("/roles", listRolesHandler())

	return r
}
