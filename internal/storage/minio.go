package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"photogallery/internal/config"
	"photogallery/internal/models"
)

// Minio stores uploads in an S3-compatible bucket.
type Minio struct {
	client *minio.Client
	cfg    config.MinioConfig
}

func NewMinio(cfg config.MinioConfig) (*Minio, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is empty")
	}

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &Minio{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *Minio) Driver() string {
	return models.StorageMinio
}

func (s *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	return nil
}

func (s *Minio) Write(ctx context.Context, data []byte, name, mimeType string) (Object, error) {
	key := s.objectKey(time.Now().UTC(), Extension(name))

	options := minio.PutObjectOptions{
		ContentType: mimeType,
	}
	if _, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), options); err != nil {
		return Object{}, upstreamError("put object", err)
	}

	return Object{
		Key: key,
		URL: s.publicURL(key),
	}, nil
}

func (s *Minio) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return upstreamError("remove object", err)
	}
	return nil
}

func (s *Minio) objectKey(now time.Time, ext string) string {
	datePrefix := now.Format("2006/01/02")
	return path.Join(datePrefix, uuid.NewString()+ext)
}

func (s *Minio) publicURL(key string) string {
	base := strings.TrimSuffix(s.cfg.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimSuffix(s.cfg.Endpoint, "/")
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			scheme := "http://"
			if s.cfg.UseSSL {
				scheme = "https://"
			}
			base = scheme + base
		}
		return fmt.Sprintf("%s/%s/%s", base, s.cfg.Bucket, key)
	}
	return fmt.Sprintf("%s/%s", base, key)
}
