// internal/app/features/tasksapi/routes.go
package tasksapi

import (
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the personal task endpoints. Any signed-in user manages
// their own list; ownership is enforced in the store queries.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.HandleList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.HandleGet)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
