package httpapi

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// registerSPARoutes serves the operator-facing single-page app from one
// static directory. The root route returns the SPA shell for authenticated
// callers and the login page otherwise; every other path falls through to
// the static file server.
func registerSPARoutes(app *fiber.App, h *handlers) {
	if h.d.StaticDir == "" {
		return
	}

	app.Get("/", h.spaRoot)
	app.Static("/", h.d.StaticDir)
}

func (h *handlers) spaRoot(c *fiber.Ctx) error {
	if _, ok := h.optionalAuth(c); ok {
		return c.SendFile(filepath.Join(h.d.StaticDir, "index.html"))
	}
	return c.SendFile(filepath.Join(h.d.StaticDir, "login.html"))
}
