package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/fathima-sithara/mycloud/internal/events"
	models "github.com/fathima-sithara/mycloud/internal/media"
	"github.com/fathima-sithara/mycloud/internal/middleware"
	service "github.com/fathima-sithara/mycloud/internal/services"
	utils "github.com/fathima-sithara/mycloud/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

type Handler struct {
	svc *service.MediaService
	hub *events.Hub
	log *zap.SugaredLogger
}

func NewHandler(svc *service.MediaService, hub *events.Hub, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, hub: hub, log: log}
}

// POST /upload (multipart/form-data 'file', optional 'keywords' and 'visibility')
func (h *Handler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return h.fail(c, fmt.Errorf("%w: file missing", utils.ErrValidation))
	}
	if err := utils.ValidateFileHeader(fileHeader, h.svc.MaxUploadBytes()); err != nil {
		return h.fail(c, err)
	}
	f, err := fileHeader.Open()
	if err != nil {
		return h.fail(c, fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()

	// basic content-type detection
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return h.fail(c, fmt.Errorf("rewind upload: %w", err))
	}

	media, err := h.svc.Upload(c.UserContext(), service.UploadInput{
		Owner:       middleware.UserID(c),
		Filename:    fileHeader.Filename,
		ContentType: utils.ContentType(fileHeader, head[:n]),
		Size:        fileHeader.Size,
		Body:        f,
		Keywords:    c.FormValue("keywords"),
		Visibility:  c.FormValue("visibility"),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, "File Uploaded Successfully", fiber.Map{"file": media})
}

// GET /get/:filename
func (h *Handler) GetByFilename(c *fiber.Ctx) error {
	m, err := h.svc.GetByFilename(c.UserContext(), middleware.UserID(c), param(c, "filename"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "", fiber.Map{"file": m})
}

// GET /get-all
func (h *Handler) GetAll(c *fiber.Ctx) error {
	vis, err := visibilityQuery(c)
	if err != nil {
		return h.fail(c, err)
	}
	files, err := h.svc.GetAll(c.UserContext(), middleware.UserID(c), vis)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "", fiber.Map{"files": files})
}

// GET /get-user-media
func (h *Handler) GetUserMedia(c *fiber.Ctx) error {
	vis, err := visibilityQuery(c)
	if err != nil {
		return h.fail(c, err)
	}
	files, err := h.svc.GetUserMedia(c.UserContext(), middleware.UserID(c), vis)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "", fiber.Map{"files": files})
}

// DELETE /delete/:id, behind middleware.Owner
func (h *Handler) Delete(c *fiber.Ctx) error {
	m := middleware.Media(c)
	if err := h.svc.Delete(c.UserContext(), m); err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, m.Kind().Label()+" Deleted Successfully", nil)
}

// PUT /edit/:id, behind middleware.Owner
func (h *Handler) Edit(c *fiber.Ctx) error {
	var p models.Patch
	if err := c.BodyParser(&p); err != nil {
		return h.fail(c, fmt.Errorf("%w: invalid body", utils.ErrValidation))
	}
	updated, err := h.svc.Edit(c.UserContext(), middleware.Media(c), p)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "File Updated Successfully", fiber.Map{"file": updated})
}

// GET /search/:keyword
func (h *Handler) Search(c *fiber.Ctx) error {
	vis, err := visibilityQuery(c)
	if err != nil {
		return h.fail(c, err)
	}
	files, err := h.svc.Search(c.UserContext(), middleware.UserID(c), param(c, "keyword"), vis)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "", fiber.Map{"files": files})
}

// GET /more-files/:page
func (h *Handler) MoreFiles(c *fiber.Ctx) error {
	// Atoi clamps out of range numbers, which then land past the last page
	page, err := strconv.Atoi(c.Params("page"))
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return h.fail(c, fmt.Errorf("%w: page must be a number", utils.ErrValidation))
	}
	vis, err := visibilityQuery(c)
	if err != nil {
		return h.fail(c, err)
	}
	files, err := h.svc.Page(c.UserContext(), middleware.UserID(c), page, vis)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "", fiber.Map{"files": files, "page": page})
}

// GET /download/:filename
func (h *Handler) Download(c *fiber.Ctx) error {
	m, rc, size, err := h.svc.Open(c.UserContext(), middleware.UserID(c), param(c, "filename"))
	if err != nil {
		return h.fail(c, err)
	}
	return sendAttachment(c, m, rc, size)
}

// GET /media/:id/download
func (h *Handler) DownloadByID(c *fiber.Ctx) error {
	m, rc, size, err := h.svc.OpenByID(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return sendAttachment(c, m, rc, size)
}

func sendAttachment(c *fiber.Ctx, m *models.Media, rc io.ReadCloser, size int64) error {
	c.Attachment(m.Filename)
	c.Set(fiber.HeaderContentType, m.ContentType)
	// fasthttp closes rc once the body is written
	return c.SendStream(rc, int(size))
}

// GET /media/:id/url -> public object URL or presigned URL
func (h *Handler) ShareURL(c *fiber.Ctx) error {
	u, err := h.svc.ShareURL(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "", fiber.Map{"url": u})
}

// GET /media/:id/preview -> link to the thumbnail, or the item when it has none
func (h *Handler) PreviewURL(c *fiber.Ctx) error {
	u, err := h.svc.PreviewURL(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "", fiber.Map{"url": u})
}

func (h *Handler) Healthz(c *fiber.Ctx) error { return c.SendString("ok") }

// RequireUpgrade guards /events against plain HTTP requests.
func (h *Handler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return utils.JSONError(c, fiber.StatusUpgradeRequired, "websocket upgrade required")
}

// Events streams the caller's media events over a websocket.
func (h *Handler) Events() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(middleware.UserIDKey).(string)
		h.hub.ServeConn(conn, userID)
	})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	if utils.StatusFor(err) >= fiber.StatusInternalServerError {
		h.log.Errorw("request failed", "path", c.Path(), "error", err)
	}
	return utils.JSONFromError(c, err)
}

func param(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func visibilityQuery(c *fiber.Ctx) (models.Visibility, error) {
	q := strings.TrimSpace(c.Query("visibility"))
	if q == "" {
		return "", nil
	}
	v, ok := models.ParseVisibility(q)
	if !ok {
		return "", fmt.Errorf("%w: visibility must be private or public", utils.ErrValidation)
	}
	return v, nil
}
