// internal/app/features/categoriesapi/routes.go
package categoriesapi

import (
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the category endpoints. Like lectures, writes ride on the
// manage_lectures permission.
func Routes(h *Handler, fetch authz.AdminFetcher) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(authz.RequirePermission(authz.PermManageLectures, fetch))
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleRename)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
