package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/rs/zerolog"

	"photogallery/internal/config"
	"photogallery/internal/database"
	"photogallery/internal/repository"
	"photogallery/internal/storage"
	"photogallery/internal/testsupport"
)

type part struct {
	name        string
	contentType string
	data        []byte
}

// fileHeaders encodes parts as a multipart body and parses it back so the
// headers behave exactly as they do behind a real request.
func fileHeaders(t *testing.T, parts ...part) []*multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photos"; filename="%s"`, p.name))
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := pw.Write(p.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["photos"]
}

type fixture struct {
	cfg    *config.AppConfig
	db     *database.DB
	repo   *repository.PhotoRepository
	local  *storage.Local
	upload *UploadService
	photos *PhotoService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	db := testsupport.NewDB(t, cfg)
	local, err := storage.NewLocal(cfg.Storage.Local)
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	repo := repository.NewPhotoRepository(db.Gorm)
	return &fixture{
		cfg:    cfg,
		db:     db,
		repo:   repo,
		local:  local,
		upload: NewUploadService(repo, local, nil, nil, int64(cfg.Upload.MaxFileSize), zerolog.Nop()),
		photos: NewPhotoService(repo, local, nil, nil, cfg.Gallery.PageSize, zerolog.Nop()),
	}
}

var errStoreDown = errors.New("store down")

// failingStore fails every write whose name is listed in failOn and delegates
// the rest.
type failingStore struct {
	storage.Store
	failOn map[string]bool
}

func (s *failingStore) Write(ctx context.Context, data []byte, name, mimeType string) (storage.Object, error) {
	if s.failOn[name] {
		return storage.Object{}, errStoreDown
	}
	return s.Store.Write(ctx, data, name, mimeType)
}
