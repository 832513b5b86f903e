package server_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Marax1234/PortfolioWebapp-sub000/internal/database"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/media"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/server"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/storage"
)

type stubDB struct {
	records map[string]*database.MediaRecord
}

func newStubDB() *stubDB {
	return &stubDB{records: make(map[string]*database.MediaRecord)}
}

func (s *stubDB) SaveMedia(_ context.Context, rec *database.MediaRecord) error {
	s.records[rec.ID] = rec
	return nil
}

func (s *stubDB) GetMedia(_ context.Context, id string) (*database.MediaRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rec, nil
}

func (s *stubDB) ListMedia(_ context.Context, limit, offset int) ([]*database.MediaRecord, error) {
	var out []*database.MediaRecord
	for _, rec := range s.records {
		out = append(out, rec)
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubDB) DeleteMedia(_ context.Context, id string) error {
	if _, ok := s.records[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.records, id)
	return nil
}

func newTestServer(t *testing.T) (*echo.Echo, *stubDB, *storage.Store) {
	t.Helper()
	logger := zap.NewNop()

	store := storage.NewStore(storage.Config{
		MaxUploadSize:     20 * 1024 * 1024,
		AllowedImageTypes: []string{"image/jpeg", "image/png"},
		AllowedVideoTypes: []string{"video/mp4", "video/quicktime"},
		UploadDir:         t.TempDir(),
		PublicPrefix:      "uploads",
	}, logger)
	require.NoError(t, store.Bootstrap())

	pipeline := media.NewPipeline(store, logger, nil)
	db := newStubDB()
	handler := server.NewMediaHandler(store, pipeline, db, logger, media.DefaultOptions(), 2)

	e := server.New(logger, handler, "uploads", store.Config().UploadDir)
	return e, db, store
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 80, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/media", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func uploadImage(t *testing.T, e *echo.Echo, filename string) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartUpload(t, filename, "image/jpeg", testJPEG(t, 640, 480)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUploadImage(t *testing.T) {
	e, db, store := newTestServer(t)

	resp := uploadImage(t, e, "Studio Portrait.jpg")
	assert.Equal(t, "IMAGE", resp["mediaType"])
	assert.Equal(t, float64(640), resp["width"])
	assert.Equal(t, float64(480), resp["height"])
	assert.Contains(t, resp["originalPath"], "/uploads/originals/")
	assert.Contains(t, resp["thumbnailPath"], "/uploads/thumbnails/")
	assert.Contains(t, resp["webpPath"], "/uploads/webp/")
	assert.Contains(t, resp["avifPath"], "/uploads/avif/")
	assert.NotEmpty(t, resp["dominantColor"])

	assert.Len(t, db.records, 1)
	assert.Equal(t, 4, store.UsageStats().TotalFiles)
}

func TestUploadRejectsUnknownType(t *testing.T) {
	e, _, store := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartUpload(t, "doc.pdf", "application/pdf", []byte("%PDF-1.4")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, store.UsageStats().TotalFiles)
}

func TestUploadContentTypeMismatch(t *testing.T) {
	e, _, _ := newTestServer(t)

	// Declared as JPEG, but the bytes sniff as plain text.
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartUpload(t, "fake.jpg", "image/jpeg", []byte("hello there")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "content type mismatch")
}

func TestUploadCorruptImage(t *testing.T) {
	e, _, store := newTestServer(t)

	// Valid PNG magic so the sniff passes, but no decodable image behind it.
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartUpload(t, "broken.png", "image/png", []byte("\x89PNG\r\n\x1a\n")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, store.UsageStats().TotalFiles)
}

func TestUploadQuickTimeVideo(t *testing.T) {
	e, db, store := newTestServer(t)

	// The sniffer reports QuickTime as application/octet-stream; the
	// upload must still go through as the declared, allowed video type.
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartUpload(t, "clip.mov", "video/quicktime", quickTimeHeader()))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VIDEO", resp["mediaType"])
	assert.Contains(t, resp["originalPath"], "/uploads/originals/")

	assert.Len(t, db.records, 1)
	assert.Equal(t, 1, store.UsageStats().Subareas[storage.SubareaOriginals].Files)
}

func TestUploadPersistFailureIsGeneric500(t *testing.T) {
	e, _, store := newTestServer(t)
	uploadDir := store.Config().UploadDir
	require.NoError(t, os.RemoveAll(filepath.Join(uploadDir, storage.SubareaOriginals)))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartUpload(t, "shot.jpg", "image/jpeg", testJPEG(t, 200, 200)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// Server-side fault details, the storage path in particular, stay out
	// of the response.
	assert.Contains(t, rec.Body.String(), "failed to store file")
	assert.NotContains(t, rec.Body.String(), uploadDir)
}

func TestTempFilesNotServed(t *testing.T) {
	e, _, store := newTestServer(t)

	resp := uploadImage(t, e, "public.jpg")
	tempFile := filepath.Join(store.Config().UploadDir, storage.SubareaTemp, "secret.tmp")
	require.NoError(t, os.WriteFile(tempFile, []byte("private"), 0o644))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, resp["originalPath"].(string), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/temp/secret.tmp", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetNotFound(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/media/missing-id", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRemovesVariantSet(t *testing.T) {
	e, _, store := newTestServer(t)

	resp := uploadImage(t, e, "shot.jpg")
	id := resp["id"].(string)
	require.Equal(t, 4, store.UsageStats().TotalFiles)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/media/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 0, store.UsageStats().TotalFiles)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/media/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTwice(t *testing.T) {
	e, _, _ := newTestServer(t)

	resp := uploadImage(t, e, "shot.jpg")
	id := resp["id"].(string)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/media/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/media/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestList(t *testing.T) {
	e, _, _ := newTestServer(t)

	uploadImage(t, e, "one.jpg")
	uploadImage(t, e, "two.jpg")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/media", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []map[string]any `json:"items"`
		Limit int              `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 20, resp.Limit)
}

func TestStats(t *testing.T) {
	e, _, _ := newTestServer(t)

	uploadImage(t, e, "one.jpg")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/storage/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats storage.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.TotalFiles)
	assert.Greater(t, stats.TotalBytes, int64(0))
}
