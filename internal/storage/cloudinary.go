package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"photogallery/internal/config"
	"photogallery/internal/models"
)

// Cloudinary uploads images to a Cloudinary account and returns the secure URL.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(cfg config.CloudinaryConfig) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary credentials are incomplete")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &Cloudinary{
		cld:    cld,
		folder: strings.Trim(cfg.Folder, "/"),
	}, nil
}

func (s *Cloudinary) Driver() string {
	return models.StorageCloudinary
}

func (s *Cloudinary) Write(ctx context.Context, data []byte, _ string, mimeType string) (Object, error) {
	result, err := s.cld.Upload.Upload(ctx, DataURI(mimeType, data), s.uploadParams())
	if err != nil {
		return Object{}, upstreamError("cloudinary upload", err)
	}
	if result.Error.Message != "" {
		return Object{}, upstreamError("cloudinary upload", errors.New(result.Error.Message))
	}
	if result.SecureURL == "" {
		return Object{}, upstreamError("cloudinary upload", errors.New("empty secure url"))
	}

	return Object{
		Key: result.PublicID,
		URL: result.SecureURL,
	}, nil
}

// uploadParams leaves Format unset so Cloudinary keeps the uploaded encoding
// instead of converting to whatever the filename extension says.
func (s *Cloudinary) uploadParams() uploader.UploadParams {
	return uploader.UploadParams{
		PublicID:     uuid.NewString(),
		Folder:       s.folder,
		ResourceType: "auto",
	}
}

func (s *Cloudinary) Remove(ctx context.Context, key string) error {
	result, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: key})
	if err != nil {
		return upstreamError("cloudinary destroy", err)
	}
	if result.Error.Message != "" {
		return upstreamError("cloudinary destroy", errors.New(result.Error.Message))
	}
	return nil
}

// DataURI encodes data as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
