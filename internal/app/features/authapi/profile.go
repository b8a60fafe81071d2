// internal/app/features/authapi/profile.go
package authapi

import (
	"net/http"

	"github.com/combinefoundation/portal/internal/app/features/shared"
	userstore "github.com/combinefoundation/portal/internal/app/store/users"
	"github.com/combinefoundation/portal/internal/app/system/authz"
	"github.com/combinefoundation/portal/internal/app/system/httperr"
	"github.com/combinefoundation/portal/internal/app/system/respond"
	"github.com/combinefoundation/portal/internal/app/system/storage"
	"github.com/combinefoundation/portal/internal/app/system/uploads"
)

type profileRequest struct {
	FullName     string   `json:"full_name" validate:"required,min=2,max=120"`
	Phone        string   `json:"phone" validate:"omitempty,max=32"`
	Gender       string   `json:"gender" validate:"omitempty,oneof=male female other"`
	CNIC         string   `json:"cnic" validate:"omitempty,max=20"`
	Age          int      `json:"age" validate:"omitempty,gte=14,lte=100"`
	City         string   `json:"city" validate:"omitempty,max=80"`
	Education    string   `json:"education" validate:"omitempty,max=120"`
	Institute    string   `json:"institute" validate:"omitempty,max=120"`
	Skills       []string `json:"skills" validate:"omitempty,dive,max=60"`
	Expertise    []string `json:"expertise" validate:"omitempty,dive,max=60"`
	Availability string   `json:"availability" validate:"omitempty,max=60"`
}

func (p profileRequest) toUpdate() userstore.ProfileUpdate {
	return userstore.ProfileUpdate{
		FullName:     p.FullName,
		Phone:        p.Phone,
		Gender:       p.Gender,
		CNIC:         p.CNIC,
		Age:          p.Age,
		City:         p.City,
		Education:    p.Education,
		Institute:    p.Institute,
		Skills:       p.Skills,
		Expertise:    p.Expertise,
		Availability: p.Availability,
	}
}

// HandleUpdateProfile lets the signed-in user edit their own profile.
// Email and role never change through this endpoint.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		h.Resp.Fail(w, r, httperr.Unauthorized("authentication required"))
		return
	}

	var req profileRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := h.Users.UpdateProfile(r.Context(), userID, req.toUpdate()); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	u, err := h.Users.GetByID(r.Context(), userID)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	respond.OKMessage(w, "profile updated", u.Redacted())
}

// HandleUploadPhoto replaces the signed-in user's profile photo. The old
// image is removed from the image store on success.
func (h *Handler) HandleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		h.Resp.Fail(w, r, httperr.Unauthorized("authentication required"))
		return
	}

	img, err := uploads.FromRequest(r, "photo", true)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	u, err := h.Users.GetByID(r.Context(), userID)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	url, publicID, err := h.Images.Upload(r.Context(), img.Reader())
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := h.Users.SetPhoto(r.Context(), userID, url, publicID); err != nil {
		storage.BestEffortDestroy(r.Context(), h.Images, publicID, h.Log)
		h.Resp.Fail(w, r, err)
		return
	}
	if u.PhotoID != "" {
		storage.BestEffortDestroy(r.Context(), h.Images, u.PhotoID, h.Log)
	}

	respond.OKMessage(w, "photo updated", map[string]string{"photo_url": url})
}
