package router

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/fathima-sithara/mycloud/internal/auth"
	"github.com/fathima-sithara/mycloud/internal/events"
	"github.com/fathima-sithara/mycloud/internal/handlers"
	models "github.com/fathima-sithara/mycloud/internal/media"
	"github.com/fathima-sithara/mycloud/internal/metrics"
	"github.com/fathima-sithara/mycloud/internal/repository"
	service "github.com/fathima-sithara/mycloud/internal/services"
	"github.com/fathima-sithara/mycloud/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	File    *models.Media   `json:"file"`
	Files   []*models.Media `json:"files"`
	Page    int             `json:"page"`
	URL     string          `json:"url"`
}

type testServer struct {
	app   *fiber.App
	store *storage.MemoryStore
	hub   *events.Hub
	key   *rsa.PrivateKey
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	store := storage.NewMemoryStore("")
	hub := events.NewHub()
	svc := service.NewMediaService(repository.NewMemoryRepo(), store, hub, service.Options{
		PageSize:       2,
		MaxUploadBytes: 1 << 20,
	})
	log := zap.NewNop().Sugar()
	app := fiber.New(fiber.Config{BodyLimit: 4 << 20})
	RegisterRoutes(app, Deps{
		Handler:  handlers.NewHandler(svc, hub, log),
		Service:  svc,
		Verifier: auth.NewJWTVerifierFromKey(&key.PublicKey),
		Metrics:  metrics.New(),
		Logger:   log,
	})
	return &testServer{app: app, store: store, hub: hub, key: key}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(s.key)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, req *http.Request, user string) (*http.Response, envelope) {
	t.Helper()
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, user))
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(body, &env), string(body))
	}
	return resp, env
}

func (s *testServer) get(t *testing.T, path, user string) (*http.Response, envelope) {
	return s.do(t, httptest.NewRequest(http.MethodGet, path, nil), user)
}

func (s *testServer) upload(t *testing.T, user, name, ct string, data []byte, fields map[string]string) (*http.Response, envelope) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(t, req, user)
}

func (s *testServer) edit(t *testing.T, user, id, body string) (*http.Response, envelope) {
	req := httptest.NewRequest(http.MethodPut, "/edit/"+id, strings.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return s.do(t, req, user)
}

func (s *testServer) remove(t *testing.T, user, id string) (*http.Response, envelope) {
	return s.do(t, httptest.NewRequest(http.MethodDelete, "/delete/"+id, nil), user)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	img.Set(3, 3, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func idsOf(ms []*models.Media) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func TestEndToEnd(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.upload(t, "alice", "beach.png", "image/png", pngBytes(t), map[string]string{"keywords": "Sunset Beach"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)
	up := env.File
	require.NotNil(t, up)
	assert.Contains(t, up.ContentType, "image")
	assert.Equal(t, "alice", up.Owner)
	assert.Equal(t, models.VisibilityPrivate, up.Visibility)
	assert.NotEmpty(t, up.Thumbnail)

	_, env = s.get(t, "/get-user-media", "alice")
	assert.Equal(t, []string{up.ID}, idsOf(env.Files))

	resp, env = s.edit(t, "alice", up.ID, `{"visibility":"public"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, models.VisibilityPublic, env.File.Visibility)

	_, env = s.get(t, "/get-all", "")
	require.Len(t, env.Files, 1)
	got := env.Files[0]
	assert.Equal(t, up.ID, got.ID)
	assert.Equal(t, up.Owner, got.Owner)
	assert.Equal(t, up.ContentType, got.ContentType)
	assert.Equal(t, up.URL, got.URL)
	assert.Equal(t, up.Keywords, got.Keywords)
	assert.Equal(t, models.VisibilityPublic, got.Visibility)

	resp, env = s.remove(t, "alice", up.ID)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Image Deleted Successfully", env.Message)

	_, env = s.get(t, "/get-user-media", "alice")
	assert.Empty(t, env.Files)
	_, env = s.get(t, "/get-all", "")
	assert.Empty(t, env.Files)
	assert.Equal(t, 0, s.store.Len())
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.upload(t, "", "a.txt", "text/plain", []byte("a"), nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)

	resp, env = s.upload(t, "alice", "", "", nil, map[string]string{"keywords": "x"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)

	resp, _ = s.upload(t, "alice", "big.bin", "application/octet-stream", make([]byte, 2<<20), nil)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)

	resp, _ = s.upload(t, "alice", "a.txt", "text/plain", []byte("a"), map[string]string{"visibility": "friends"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, 0, s.store.Len())
}

func TestOwnershipEnforced(t *testing.T) {
	s := newTestServer(t)
	_, env := s.upload(t, "alice", "cv.pdf", "application/pdf", []byte("%PDF-1.4"), map[string]string{"keywords": "resume"})
	id := env.File.ID

	resp, _ := s.remove(t, "bob", id)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, _ = s.edit(t, "bob", id, `{"keywords":"stolen"}`)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, _ = s.remove(t, "", id)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	_, env = s.get(t, "/get/cv.pdf", "alice")
	assert.Equal(t, "resume", env.File.Keywords)
	assert.Equal(t, 1, s.store.Len())

	resp, _ = s.remove(t, "alice", "000000000000000000000000")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, env = s.remove(t, "alice", id)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Document Deleted Successfully", env.Message)
}

func TestEditValidation(t *testing.T) {
	s := newTestServer(t)
	_, env := s.upload(t, "alice", "clip.mp4", "video/mp4", []byte("mp4"), nil)
	id := env.File.ID

	for _, body := range []string{`{}`, `{"keywords":"   "}`, `{"visibility":"friends"}`, `not json`} {
		resp, env := s.edit(t, "alice", id, body)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, body)
		assert.False(t, env.Success)
	}

	resp, env := s.edit(t, "alice", id, `{"keywords":"holiday","visibility":"public"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "holiday", env.File.Keywords)
	assert.Equal(t, models.VisibilityPublic, env.File.Visibility)
}

func TestSearchAndFilename(t *testing.T) {
	s := newTestServer(t)
	_, env := s.upload(t, "alice", "my beach.png", "image/png", pngBytes(t),
		map[string]string{"keywords": "Sunset Beach", "visibility": "public"})
	id := env.File.ID
	_, env = s.upload(t, "bob", "hill.png", "image/png", pngBytes(t), map[string]string{"keywords": "mountain"})
	hill := env.File.ID

	for _, q := range []string{"sunset", "BEACH"} {
		resp, env := s.get(t, "/search/"+q, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{id}, idsOf(env.Files), q)
	}
	_, env = s.get(t, "/search/mountain", "")
	assert.Empty(t, env.Files)
	_, env = s.get(t, "/search/mountain", "bob")
	assert.Equal(t, []string{hill}, idsOf(env.Files))

	resp, env := s.get(t, "/get/my%20beach.png", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, id, env.File.ID)

	resp, _ = s.get(t, "/get/hill.png", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, env = s.get(t, "/get/hill.png", "bob")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, hill, env.File.ID)

	resp, env = s.get(t, "/get/nothing.png", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)

	_, env = s.get(t, "/get-all", "")
	assert.Equal(t, []string{id}, idsOf(env.Files))
	_, env = s.get(t, "/get-all", "bob")
	assert.Equal(t, []string{id, hill}, idsOf(env.Files))

	resp, _ = s.get(t, "/get-all?visibility=public", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = s.get(t, "/get-all?visibility=secret", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMoreFiles(t *testing.T) {
	s := newTestServer(t)
	var ids []string
	for _, n := range []string{"1.txt", "2.txt", "3.txt"} {
		_, env := s.upload(t, "alice", n, "text/plain", []byte(n), nil)
		ids = append(ids, env.File.ID)
	}

	_, env := s.get(t, "/more-files/0", "alice")
	assert.Equal(t, ids[:2], idsOf(env.Files))
	assert.Equal(t, 0, env.Page)

	_, env = s.get(t, "/more-files/1", "alice")
	assert.Equal(t, ids[2:], idsOf(env.Files))

	_, env = s.get(t, "/more-files/0", "")
	assert.Empty(t, env.Files)

	for _, page := range []string{"9", "4611686018427387904", "9223372036854775807", "123456789012345678901234567890"} {
		resp, _ := s.get(t, "/more-files/"+page, "alice")
		require.Equal(t, fiber.StatusOK, resp.StatusCode, page)
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), `"files":[]`, page)
	}

	resp, _ := s.get(t, "/more-files/abc", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDownload(t *testing.T) {
	s := newTestServer(t)
	s.upload(t, "alice", "notes.txt", "text/plain", []byte("hello world"), nil)

	resp, _ := s.get(t, "/download/notes.txt", "alice")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `attachment; filename="notes.txt"`)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "hello world", string(body))

	for _, user := range []string{"", "bob"} {
		resp, _ = s.get(t, "/download/notes.txt", user)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, user)
	}

	resp, _ = s.get(t, "/download/missing.txt", "alice")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDownloadByID(t *testing.T) {
	s := newTestServer(t)
	s.upload(t, "alice", "notes.txt", "text/plain", []byte("ALICE SECRET"), nil)
	_, env := s.upload(t, "bob", "notes.txt", "text/plain", []byte("bob's own notes"), nil)
	bobs := env.File.ID

	resp, _ := s.get(t, "/media/"+bobs+"/download", "bob")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="notes.txt"`)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "bob's own notes", string(body))

	resp, _ = s.get(t, "/download/notes.txt", "bob")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "bob's own notes", string(body))

	resp, _ = s.get(t, "/media/"+bobs+"/download", "alice")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, _ = s.get(t, "/media/"+bobs+"/download", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestPreviewURL(t *testing.T) {
	s := newTestServer(t)
	_, env := s.upload(t, "alice", "a.png", "image/png", pngBytes(t), nil)
	id := env.File.ID
	require.NotEmpty(t, env.File.Thumbnail)

	resp, env := s.get(t, "/media/"+id+"/preview", "alice")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, env.URL, "_thumb.jpg")

	resp, _ = s.get(t, "/media/"+id+"/preview", "bob")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestShareURL(t *testing.T) {
	s := newTestServer(t)
	_, env := s.upload(t, "alice", "a.txt", "text/plain", []byte("a"), nil)
	id := env.File.ID

	resp, _ := s.get(t, "/media/"+id+"/url", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, _ = s.get(t, "/media/"+id+"/url", "bob")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, env = s.get(t, "/media/"+id+"/url", "alice")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, env.URL)
}

func TestEventsRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.get(t, "/events", "alice")
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	assert.Equal(t, 0, s.hub.Count("alice"))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.get(t, "/healthz", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	s.get(t, "/get-all", "")
	resp, _ = s.get(t, "/metrics", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "http_request_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "http://gallery.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")
}
