// internal/app/features/logs/routes.go
package logs

import (
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the log views. Superadmin and developer only; the logs
// record what every other role does.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(authz.RequireRole(models.RoleSuperAdmin, models.RoleDeveloper))

		pr.Get("/audit", h.HandleListAudit)
		pr.Get("/errors", h.HandleListErrors)
		pr.Post("/purge", h.HandlePurge)
	})

	return r
}
