// internal/app/features/authapi/routes.go
package authapi

import (
	"github.com/combinefoundation/portal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the session and credential endpoints.
// Typically: r.Mount("/auth", authapi.Routes(handler))
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/login", h.HandleLogin)
	r.Post("/forgot-password", h.HandleForgotPassword)
	r.Post("/verify-otp", h.HandleVerifyOTP)
	r.Post("/reset-password", h.HandleResetPassword)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		// GET is kept for clients that log out via a plain link.
		pr.Get("/logout", h.HandleLogout)
		pr.Post("/logout", h.HandleLogout)
		pr.Get("/me", h.HandleMe)
		pr.Put("/me/profile", h.HandleUpdateProfile)
		pr.Post("/me/photo", h.HandleUploadPhoto)
		pr.Post("/change-password", h.HandleChangePassword)
	})

	return r
}
