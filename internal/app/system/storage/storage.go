// internal/app/system/storage/storage.go

// Package storage wraps the external image host (Cloudinary). The portal
// treats it as a collaborator: uploads block the request, deletes are
// best-effort cleanup the callers deliberately do not fail on.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImageStore uploads and deletes externally hosted images.
type ImageStore interface {
	// Upload stores the image under the configured folder and returns its
	// public URL and the public ID needed to delete it later.
	Upload(ctx context.Context, r io.Reader) (url, publicID string, err error)
	// Destroy removes an uploaded image. Callers treat failure as
	// log-and-continue; the image host is not transactional with the
	// document store.
	Destroy(ctx context.Context, publicID string) error
}

// Cloudinary is the production ImageStore.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
	log    *zap.Logger
}

// NewCloudinary builds an ImageStore from a cloudinary:// URL and a fixed
// folder prefix for all portal uploads.
func NewCloudinary(cloudinaryURL, folder string, logger *zap.Logger) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	if folder == "" {
		folder = "portal"
	}
	return &Cloudinary{cld: cld, folder: folder, log: logger}, nil
}

// Upload stores an image and returns (secure URL, public ID).
func (c *Cloudinary) Upload(ctx context.Context, r io.Reader) (string, string, error) {
	publicID := uuid.NewString()
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   c.folder,
		PublicID: publicID,
	})
	if err != nil {
		return "", "", fmt.Errorf("cloudinary upload: %w", err)
	}
	return res.SecureURL, res.PublicID, nil
}

// Destroy removes an image by public ID.
func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	_, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", publicID, err)
	}
	return nil
}

// BestEffortDestroy deletes an image, logging failure instead of returning
// it. The document-store delete it accompanies has already happened.
func BestEffortDestroy(ctx context.Context, store ImageStore, publicID string, logger *zap.Logger) {
	if store == nil || publicID == "" {
		return
	}
	if err := store.Destroy(ctx, publicID); err != nil {
		logger.Warn("image delete failed", zap.String("public_id", publicID), zap.Error(err))
	}
}

// Disabled is the ImageStore used when no Cloudinary URL is configured.
// Uploads fail with a clear message; destroys are no-ops.
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, r io.Reader) (string, string, error) {
	return "", "", errors.New("image uploads are not configured on this deployment")
}

func (Disabled) Destroy(ctx context.Context, publicID string) error { return nil }
