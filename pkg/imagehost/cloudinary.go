package imagehost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
	"github.com/google/uuid"
)

// CloudinaryConfig holds credentials for signed Cloudinary uploads.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	// BaseURL overrides the upload API prefix, mainly for tests.
	BaseURL string
}

// Cloudinary uploads blobs through the Cloudinary upload API.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinary creates a Cloudinary resolver.
func NewCloudinary(cfg CloudinaryConfig) (*Cloudinary, error) {
	conf, err := config.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("invalid cloudinary configuration: %w", err)
	}
	if cfg.BaseURL != "" {
		conf.API.UploadPrefix = strings.TrimRight(cfg.BaseURL, "/")
	}

	cld, err := cloudinary.NewFromConfiguration(*conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &Cloudinary{cld: cld, folder: cfg.Folder}, nil
}

// Resolve implements Resolver.
func (c *Cloudinary) Resolve(ctx context.Context, blob *Blob) (string, error) {
	if blob == nil {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", c.fail(err)
	}

	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(blob.Data), uploader.UploadParams{
		PublicID:     "product_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Folder:       c.folder,
		ResourceType: "image",
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", c.fail(err)
	}
	if resp == nil {
		return "", c.fail(errors.New("empty upload response"))
	}
	if resp.Error.Message != "" {
		return "", c.fail(errors.New(resp.Error.Message))
	}
	if resp.SecureURL == "" {
		return "", c.fail(errors.New("upload response has no secure_url"))
	}
	return resp.SecureURL, nil
}

func (c *Cloudinary) fail(err error) error {
	return &UploadError{Host: "cloudinary", Err: err}
}
