// Package httpapi wires every public endpoint to the router, applying the
// auth, rate-limit, and admin guards described in the component design, and
// shaping every JSON/SSE/error response.
package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/churchstage/presenter-proxy/internal/apierror"
	"github.com/churchstage/presenter-proxy/internal/auth"
	"github.com/churchstage/presenter-proxy/internal/backup"
	"github.com/churchstage/presenter-proxy/internal/config"
	"github.com/churchstage/presenter-proxy/internal/export"
	"github.com/churchstage/presenter-proxy/internal/jobs"
	"github.com/churchstage/presenter-proxy/internal/logging"
	"github.com/churchstage/presenter-proxy/internal/presenter"
	"github.com/churchstage/presenter-proxy/internal/store"
	"github.com/churchstage/presenter-proxy/internal/viewer"
)

// Deps is every collaborator the router needs. Handlers never reach past
// this struct for state.
type Deps struct {
	Config     *config.Config
	Logger     *logging.Logger
	Presenter  *presenter.Client
	Settings   *store.SettingsStore
	Users      *store.UserStore
	Aliases    *store.AliasStore
	Sessions   *store.SessionStore
	Auth       *auth.Manager
	Jobs       *jobs.Manager
	Export     *export.Orchestrator
	Viewer     *viewer.Service
	Backup     *backup.Manager
	StaticDir  string
	UploadsDir string
	StartedAt  time.Time
}

// New builds the fully wired Fiber app.
func New(d *Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "presenter-proxy",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestLogger(d.Logger))
	app.Use(auth.SecurityHeaders(d.Config.IsHTTPS()))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))

	h := &handlers{d: d}

	registerAuthRoutes(app, h)
	registerUserRoutes(app, h)
	registerConfigRoutes(app, h)
	registerJobRoutes(app, h)
	registerViewerRoutes(app, h)
	registerHealthRoutes(app, h)
	registerSPARoutes(app, h)

	return app
}

// errorHandler turns an *apierror.Error into its documented JSON shape and a
// *fiber.Error into its own status code; anything else is treated as an
// internal error.
func errorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	if ae, ok := err.(*apierror.Error); ok {
		body := fiber.Map{"error": ae.Message}
		if ae.Hint != "" {
			body["hint"] = ae.Hint
		}
		return c.Status(ae.Kind.Status()).JSON(body)
	}
	return c.Status(500).JSON(fiber.Map{"error": "internal error"})
}

// requestLogger writes one structured line per request: method, path,
// status, latency, client ip, authenticated email, and a request id.
func requestLogger(logger *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqID := uuid.NewString()
		c.Locals("requestId", reqID)

		err := c.Next()
		if err != nil {
			// Run the error handler here so the logged status is the one the
			// client receives.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		status := c.Response().StatusCode()
		email := ""
		if id, ok := auth.CurrentIdentity(c); ok {
			email = id.Email
		}

		evt := logger.Info()
		if status >= 500 {
			evt = logger.Error()
		} else if status >= 400 {
			evt = logger.Warn()
		}
		evt.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Int64("latencyMs", time.Since(start).Milliseconds()).
			Str("clientIp", auth.ClientIP(c)).
			Str("userEmail", email).
			Str("requestId", reqID).
			Msg("request")

		return err
	}
}

type handlers struct {
	d *Deps
}

// optionalAuth resolves an Identity if credentials are present, without
// rejecting the request — used by routes like the SPA root that behave
// differently for authenticated vs anonymous callers.
func (h *handlers) optionalAuth(c *fiber.Ctx) (auth.Identity, bool) {
	if hdr := c.Get(fiber.HeaderAuthorization); hdr != "" {
		if id, ok := h.d.Auth.AuthenticateBearer(hdr); ok {
			return id, true
		}
	}
	if cookie := c.Cookies(auth.CookieName); cookie != "" {
		if id, ok := h.d.Auth.AuthenticateCookie(cookie); ok {
			return id, true
		}
	}
	return auth.Identity{}, false
}

// presenterTimeout bounds one outbound Presenter call issued from a route
// handler.
func presenterTimeout() time.Duration { return 8 * time.Second }
