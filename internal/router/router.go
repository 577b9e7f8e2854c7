package router

import (
	"github.com/fathima-sithara/mycloud/internal/handlers"
	"github.com/fathima-sithara/mycloud/internal/metrics"
	"github.com/fathima-sithara/mycloud/internal/middleware"
	service "github.com/fathima-sithara/mycloud/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

type Deps struct {
	Handler  *handlers.Handler
	Service  *service.MediaService
	Verifier middleware.TokenVerifier
	Metrics  *metrics.Metrics
	Logger   *zap.SugaredLogger

	// UploadLimit guards POST /upload, PublicLimit the unauthenticated reads. Nil disables.
	UploadLimit fiber.Handler
	PublicLimit fiber.Handler

	// CORSOrigins is a comma separated allow list; empty allows any origin.
	CORSOrigins string
}

func RegisterRoutes(app *fiber.App, d Deps) {
	app.Use(middleware.Recovery(d.Logger))
	app.Use(middleware.RequestLogger(d.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  orAny(d.CORSOrigins),
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders: "Content-Disposition",
	}))
	if d.Metrics != nil {
		app.Use(d.Metrics.Middleware())
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	h := d.Handler
	auth := middleware.JWTAuth(d.Verifier)
	owner := middleware.Owner(d.Service)
	public := orNext(d.PublicLimit)
	// unscoped reads show public records, plus the caller's own when a token is sent
	viewer := middleware.OptionalAuth(d.Verifier)

	app.Get("/healthz", h.Healthz)

	app.Post("/upload", auth, orNext(d.UploadLimit), h.Upload)
	app.Get("/get/:filename", public, viewer, h.GetByFilename)
	app.Get("/get-all", public, viewer, h.GetAll)
	app.Get("/get-user-media", auth, h.GetUserMedia)
	app.Delete("/delete/:id", auth, owner, h.Delete)
	app.Put("/edit/:id", auth, owner, h.Edit)
	app.Get("/search/:keyword", public, viewer, h.Search)
	app.Get("/more-files/:page", public, viewer, h.MoreFiles)
	app.Get("/download/:filename", public, viewer, h.Download)

	app.Get("/media/:id/url", public, viewer, h.ShareURL)
	app.Get("/media/:id/preview", public, viewer, h.PreviewURL)
	app.Get("/media/:id/download", public, viewer, h.DownloadByID)
	app.Get("/events", h.RequireUpgrade, auth, h.Events())
}

func orNext(h fiber.Handler) fiber.Handler {
	if h != nil {
		return h
	}
	return func(c *fiber.Ctx) error { return c.Next() }
}

func orAny(origins string) string {
	if origins == "" {
		return "*"
	}
	return origins
}
