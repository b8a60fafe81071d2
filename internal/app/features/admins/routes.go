// internal/app/features/admins/routes.go
package admins

import (
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the admin management endpoints. All of them require the
// can_manage_admins flag (or a superadmin/developer session).
func Routes(h *Handler, fetch authz.AdminFetcher) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(authz.RequireManageAdmins(fetch))

		pr.Get("/", h.HandleList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.HandleGet)
		pr.Put("/{id}/permissions", h.HandleSetPermissions)
		pr.Put("/{id}/active", h.HandleSetActive)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
