// internal/app/features/lecturesapi/routes.go
package lecturesapi

import (
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the lecture endpoints. Writes are gated on the
// manage_lectures permission, which is not in the grantable set, so in
// practice only superadmin and developer sessions pass.
func Routes(h *Handler, fetch authz.AdminFetcher) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)
	r.Get("/{id}", h.HandleGet)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(authz.RequirePermission(authz.PermManageLectures, fetch))
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
