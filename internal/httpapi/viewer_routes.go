package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/churchstage/presenter-proxy/internal/apierror"
)

const viewerKeepalive = 15 * time.Second

func registerViewerRoutes(app *fiber.App, h *handlers) {
	g := app.Group("/viewer")

	g.Get("/api/status", h.viewerStatus)
	g.Get("/api/slide", h.viewerStatus)
	g.Get("/api/thumbnail/:uuid/:index", h.viewerThumbnail)
	g.Get("/events", h.viewerEvents)

	if h.d.StaticDir != "" {
		g.Static("/", h.d.StaticDir+"/viewer")
	}
}

func (h *handlers) viewerStatus(c *fiber.Ctx) error {
	return c.JSON(h.d.Viewer.Current())
}

func (h *handlers) viewerThumbnail(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	index := c.Params("index")
	var idx int
	if _, err := fmt.Sscanf(index, "%d", &idx); err != nil {
		return apierror.New(apierror.BadRequest, "index must be an integer")
	}

	ctx, cancel := context.WithTimeout(c.Context(), presenterTimeout())
	defer cancel()

	body, contentType, err := h.d.Presenter.ThumbnailStream(ctx, uuid, idx)
	if err != nil {
		return apierror.Wrap(apierror.UpstreamUnavailable, "fetching thumbnail", err)
	}
	defer body.Close()

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")

	data, err := io.ReadAll(body)
	if err != nil {
		return apierror.Wrap(apierror.UpstreamUnavailable, "reading thumbnail", err)
	}
	return c.Send(data)
}

func (h *handlers) viewerEvents(c *fiber.Ctx) error {
	events, unsubscribe := h.d.Viewer.Subscribe()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		ticker := time.NewTicker(viewerKeepalive)
		defer ticker.Stop()

		for {
			select {
			case evt, open := <-events:
				if !open {
					return
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					return
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}
