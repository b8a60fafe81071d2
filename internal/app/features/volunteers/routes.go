// internal/app/features/volunteers/routes.go
package volunteers

import (
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the volunteer endpoints. The application endpoint is
// public; everything else requires the manage_volunteers permission.
// Typically: r.Mount("/volunteers", volunteers.Routes(handler, adminFetch))
func Routes(h *Handler, fetch authz.AdminFetcher) chi.Router {
	r := chi.NewRouter()

	r.Post("/apply", h.HandleApply)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(authz.RequirePermission(models.PermManageVolunteers, fetch))

		pr.Get("/", h.HandleList)
		pr.Post("/invite", h.HandleInvite)
		pr.Get("/{id}", h.HandleGet)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/approve", h.HandleApprove)
		pr.Post("/{id}/reject", h.HandleReject)
		pr.Post("/{id}/complete", h.HandleComplete)
	})

	return r
}
