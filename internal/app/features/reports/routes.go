// internal/app/features/reports/routes.go
package reports

import (
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the read-only reports. These are the only gated routes a
// trustee session passes.
func Routes(h *Handler, fetch authz.AdminFetcher) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(authz.RequirePermission(models.PermViewReports, fetch))
		pr.Get("/overview", h.HandleOverview)
		pr.Get("/volunteers", h.HandleVolunteers)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(authz.RequirePermission(models.PermViewAnalytics, fetch))
		pr.Get("/activity/{id}", h.HandleUserActivity)
	})

	return r
}
