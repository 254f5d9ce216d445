package httpapi

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/churchstage/presenter-proxy/internal/apierror"
	"github.com/churchstage/presenter-proxy/internal/auth"
	"github.com/churchstage/presenter-proxy/internal/models"
	"github.com/churchstage/presenter-proxy/internal/supervisor"
)

func registerConfigRoutes(app *fiber.App, h *handlers) {
	api := app.Group("/api", h.d.Auth.RequireAuth())

	api.Get("/status", h.connectionStatus)
	api.Get("/playlists", h.listPlaylists)
	api.Get("/libraries", h.listLibraries)

	api.Get("/settings", h.getSettings)
	api.Put("/settings", h.putSettings)

	api.Get("/aliases", h.listAliases)
	api.Put("/aliases/:title", h.putAlias)
	api.Delete("/aliases/:title", h.deleteAlias)

	api.Get("/fonts", h.listFonts)
	api.Get("/fonts/:name/check", h.checkFont)

	api.Post("/propresenter/launch", auth.RequireAdmin(), h.launchPresenter)
	api.Get("/propresenter/running", h.presenterRunning)
}

func (h *handlers) connectionStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), presenterTimeout())
	defer cancel()

	version, err := h.d.Presenter.Version(ctx)
	if err != nil {
		return c.JSON(fiber.Map{"connected": false})
	}
	return c.JSON(fiber.Map{
		"connected": true,
		"version":   version.Version,
		"name":      version.Name,
		"platform":  version.Platform,
	})
}

func (h *handlers) listPlaylists(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), presenterTimeout())
	defer cancel()

	playlists, err := h.d.Presenter.ListPlaylists(ctx)
	if err != nil {
		return apierror.Wrap(apierror.UpstreamUnavailable, "listing playlists", err)
	}
	return c.JSON(fiber.Map{"playlists": playlists})
}

func (h *handlers) listLibraries(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), presenterTimeout())
	defer cancel()
	return c.JSON(fiber.Map{"libraries": h.d.Presenter.ListLibraries(ctx)})
}

func (h *handlers) getSettings(c *fiber.Ctx) error {
	return c.JSON(h.d.Settings.Load())
}

func (h *handlers) putSettings(c *fiber.Ctx) error {
	var body models.Settings
	if err := c.BodyParser(&body); err != nil {
		return apierror.New(apierror.BadRequest, "invalid settings body")
	}
	merged, err := h.d.Settings.Save(body)
	if err != nil {
		return apierror.Wrap(apierror.Internal, "saving settings", err)
	}
	return c.JSON(merged)
}

func (h *handlers) listAliases(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"aliases": h.d.Aliases.Load()})
}

func (h *handlers) putAlias(c *fiber.Ctx) error {
	title := c.Params("title")
	var body models.Alias
	if err := c.BodyParser(&body); err != nil || body.PresentationUUID == "" {
		return apierror.New(apierror.BadRequest, "presentationUuid is required")
	}
	if err := h.d.Aliases.Set(title, body); err != nil {
		return apierror.Wrap(apierror.Internal, "saving alias", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *handlers) deleteAlias(c *fiber.Ctx) error {
	title := c.Params("title")
	if err := h.d.Aliases.Remove(title); err != nil {
		return apierror.Wrap(apierror.Internal, "removing alias", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// listFonts enumerates font files available for deck rendering from the
// uploads directory's fonts subfolder. No font-rendering logic lives here —
// that belongs to the delegated deck builder.
func (h *handlers) listFonts(c *fiber.Ctx) error {
	fontsDir := filepath.Join(h.d.UploadsDir, "fonts")
	entries, err := os.ReadDir(fontsDir)
	if err != nil {
		return c.JSON(fiber.Map{"fonts": []string{}})
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		}
	}
	return c.JSON(fiber.Map{"fonts": names})
}

func (h *handlers) checkFont(c *fiber.Ctx) error {
	name := c.Params("name")
	fontsDir := filepath.Join(h.d.UploadsDir, "fonts")
	entries, err := os.ReadDir(fontsDir)
	if err != nil {
		return c.JSON(fiber.Map{"available": false})
	}
	for _, e := range entries {
		if strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())) == name {
			return c.JSON(fiber.Map{"available": true})
		}
	}
	return c.JSON(fiber.Map{"available": false})
}

func (h *handlers) launchPresenter(c *fiber.Ctx) error {
	result := supervisor.LaunchAndWait(c.Context(), h.d.Presenter, 30*presenterTimeout())
	return c.JSON(fiber.Map{"launched": result.Launched, "ready": result.Ready, "error": result.Error})
}

func (h *handlers) presenterRunning(c *fiber.Ctx) error {
	running, err := supervisor.IsRunning(c.Context())
	if err != nil {
		return c.JSON(fiber.Map{"running": false})
	}
	return c.JSON(fiber.Map{"running": running})
}
