// internal/app/features/trustees/routes.go
package trustees

import (
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts trustee account management. Trustee accounts are created
// and removed by superadmins only.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(authz.RequireRole(models.RoleSuperAdmin, models.RoleDeveloper))

		pr.Get("/", h.HandleList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.HandleGet)
		pr.Put("/{id}/expertise", h.HandleSetExpertise)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
