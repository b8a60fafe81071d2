// internal/app/features/idcard/routes.go
package idcard

import (
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the ID card endpoints. Every signed-in user can fetch and
// download their own card; managing other users' cards needs the
// manage_idcards permission.
func Routes(h *Handler, fetch authz.AdminFetcher) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/me", h.HandleGetOwn)
		pr.Get("/me/pdf", h.HandleDownloadOwn)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(authz.RequirePermission(models.PermManageIDCards, fetch))
		pr.Get("/{userID}", h.HandleGet)
		pr.Get("/{userID}/pdf", h.HandleDownload)
		pr.Post("/{userID}/regenerate", h.HandleRegenerate)
	})

	return r
}
