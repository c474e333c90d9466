package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"photogallery/internal/handlers"
	"photogallery/internal/ids"
	"photogallery/internal/models"
	"photogallery/internal/repository"
	"photogallery/internal/service"
	"photogallery/internal/storage"
	"photogallery/internal/testsupport"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	db := testsupport.NewDB(t, cfg)
	local, err := storage.NewLocal(cfg.Storage.Local)
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	repo := repository.NewPhotoRepository(db.Gorm)
	log := zerolog.Nop()
	uploads := service.NewUploadService(repo, local, nil, nil, int64(cfg.Upload.MaxFileSize), log)
	photos := service.NewPhotoService(repo, local, nil, nil, cfg.Gallery.PageSize, log)
	set := handlers.NewHandlerSet(log, cfg, db, nil, uploads, photos)
	return NewHTTPServer(cfg, log, set, local).Handler()
}

func multipartBody(t *testing.T, field string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, f.name))
		h.Set("Content-Type", f.contentType)
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := pw.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type uploadResponse struct {
	Message string         `json:"message"`
	Photos  []models.Photo `json:"photos"`
}

func uploadFiles(t *testing.T, h http.Handler, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, "photos", files...)
	req := httptest.NewRequest(http.MethodPost, "/api/photos/upload", body)
	req.Header.Set("Content-Type", contentType)
	return do(t, h, req)
}

func TestUploadListAndServe(t *testing.T) {
	h := newTestServer(t)
	data := testsupport.PNG(t, 12, 8)

	rec := uploadFiles(t, h,
		upload{name: "cat.png", contentType: "image/png", data: data},
		upload{name: "readme.txt", contentType: "text/plain", data: []byte("hi")},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d body %s", rec.Code, rec.Body.String())
	}
	var up uploadResponse
	decode(t, rec, &up)
	if up.Message != "upload succeeded" || len(up.Photos) != 1 {
		t.Fatalf("unexpected upload response: %+v", up)
	}
	photo := up.Photos[0]
	if photo.Size != int64(len(data)) || photo.Width != 12 || photo.Height != 8 || photo.IsFavorite {
		t.Fatalf("unexpected photo: %+v", photo)
	}
	if strings.Contains(rec.Body.String(), "StorageKey") {
		t.Fatal("storage key must not be exposed")
	}

	rec = do(t, h, httptest.NewRequest(http.MethodGet, photo.URL, nil))
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), data) {
		t.Fatalf("static fetch of %s: status %d, %d bytes", photo.URL, rec.Code, rec.Body.Len())
	}

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/photos", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Photos      []models.Photo `json:"photos"`
		TotalPhotos int64          `json:"total_photos"`
		TotalPages  int            `json:"total_pages"`
		Page        int            `json:"page"`
	}
	decode(t, rec, &list)
	if list.TotalPhotos != 1 || list.TotalPages != 1 || list.Page != 1 || list.Photos[0].ID != photo.ID {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestUploadErrors(t *testing.T) {
	h := newTestServer(t)

	rec := uploadFiles(t, h)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "no files") {
		t.Fatalf("empty upload: %d %s", rec.Code, rec.Body.String())
	}

	rec = uploadFiles(t, h, upload{name: "a.txt", contentType: "text/plain", data: []byte("x")})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "no valid files") {
		t.Fatalf("text-only upload: %d %s", rec.Code, rec.Body.String())
	}

	body, contentType := multipartBody(t, "other", upload{name: "a.png", contentType: "image/png", data: testsupport.PNG(t, 1, 1)})
	req := httptest.NewRequest(http.MethodPost, "/api/photos/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec = do(t, h, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "no files") {
		t.Fatalf("wrong field: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/photos/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec = do(t, h, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-multipart upload: %d", rec.Code)
	}

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/photos", nil))
	var list struct {
		Photos      []models.Photo `json:"photos"`
		TotalPhotos int64          `json:"total_photos"`
	}
	decode(t, rec, &list)
	if list.TotalPhotos != 0 || list.Photos == nil {
		t.Fatalf("expected empty, non-null list: %s", rec.Body.String())
	}
}

func TestFavoriteAndFilter(t *testing.T) {
	h := newTestServer(t)
	var up uploadResponse
	decode(t, uploadFiles(t, h,
		upload{name: "one.png", contentType: "image/png", data: testsupport.PNG(t, 1, 1)},
		upload{name: "two.jpg", contentType: "image/jpeg", data: testsupport.JPEG(t, 2, 2)},
	), &up)
	if len(up.Photos) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(up.Photos))
	}
	target := up.Photos[1]

	patch := func(id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/photos/"+id, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return do(t, h, req)
	}

	for i := 0; i < 2; i++ {
		rec := patch(target.ID, `{"isFavorite":true}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("patch %d: status %d", i, rec.Code)
		}
		var got models.Photo
		decode(t, rec, &got)
		if !got.IsFavorite || got.ID != target.ID {
			t.Fatalf("patch %d: unexpected photo %+v", i, got)
		}
	}

	if rec := patch(target.ID, `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing field: status %d", rec.Code)
	}
	if rec := patch(target.ID, `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d", rec.Code)
	}
	if rec := patch("does-not-exist", `{"isFavorite":true}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: status %d", rec.Code)
	}

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/photos?favorite=true", nil))
	var list struct {
		Photos      []models.Photo `json:"photos"`
		TotalPhotos int64          `json:"total_photos"`
	}
	decode(t, rec, &list)
	if list.TotalPhotos != 1 || list.Photos[0].ID != target.ID {
		t.Fatalf("favorite filter: %s", rec.Body.String())
	}

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/photos?search=ONE&page=abc", nil))
	decode(t, rec, &list)
	if list.TotalPhotos != 1 || list.Photos[0].OriginalName != "one.png" {
		t.Fatalf("search: %s", rec.Body.String())
	}
}

func TestDeletePhoto(t *testing.T) {
	h := newTestServer(t)
	var up uploadResponse
	decode(t, uploadFiles(t, h, upload{name: "gone.png", contentType: "image/png", data: testsupport.PNG(t, 3, 3)}), &up)
	photo := up.Photos[0]

	rec := do(t, h, httptest.NewRequest(http.MethodDelete, "/api/photos/"+photo.ID, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "photo deleted") {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, h, httptest.NewRequest(http.MethodGet, photo.URL, nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("file still served after delete: %d", rec.Code)
	}
	if rec := do(t, h, httptest.NewRequest(http.MethodDelete, "/api/photos/"+photo.ID, nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var body struct {
		Database    string `json:"database"`
		Cache       string `json:"cache"`
		Environment string `json:"environment"`
		Photos      int64  `json:"photos"`
	}
	decode(t, rec, &body)
	if body.Database != "ok" || body.Cache != "disabled" || body.Environment != "test" || body.Photos != 0 {
		t.Fatalf("unexpected health: %+v", body)
	}

	uploadFiles(t, h,
		upload{name: "a.png", contentType: "image/png", data: testsupport.PNG(t, 1, 1)},
		upload{name: "b.png", contentType: "image/png", data: testsupport.PNG(t, 1, 1)},
	)
	decode(t, do(t, h, httptest.NewRequest(http.MethodGet, "/api/healthz", nil)), &body)
	if body.Photos != 2 {
		t.Fatalf("health photos = %d, want 2", body.Photos)
	}
}

func TestMalformedIDIsNotFound(t *testing.T) {
	h := newTestServer(t)

	for _, id := range []string{"not-an-id", "2abc", "photo.png"} {
		rec := do(t, h, httptest.NewRequest(http.MethodDelete, "/api/photos/"+id, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("DELETE %s: status %d, want 404", id, rec.Code)
		}

		req := httptest.NewRequest(http.MethodPatch, "/api/photos/"+id, strings.NewReader(`{"isFavorite":true}`))
		req.Header.Set("Content-Type", "application/json")
		if rec := do(t, h, req); rec.Code != http.StatusNotFound {
			t.Errorf("PATCH %s: status %d, want 404", id, rec.Code)
		}
	}

	rec := do(t, h, httptest.NewRequest(http.MethodDelete, "/api/photos/"+ids.New(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown well-formed id: status %d, want 404", rec.Code)
	}
}

func TestPreflight(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/photos/abc", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := do(t, h, req)
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("preflight: %d %q", rec.Code, rec.Body.String())
	}
}
