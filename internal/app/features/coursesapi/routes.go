// internal/app/features/coursesapi/routes.go
package coursesapi

import (
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the course endpoints. Reads are open to any session (and
// the public list shows published courses only); writes need the
// manage_courses permission.
func Routes(h *Handler, fetch authz.AdminFetcher) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)
	r.Get("/{id}", h.HandleGet)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(authz.RequirePermission(models.PermManageCourses, fetch))
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
