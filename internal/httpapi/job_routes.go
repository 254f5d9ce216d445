package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/churchstage/presenter-proxy/internal/apierror"
	"github.com/churchstage/presenter-proxy/internal/models"
)

const jobKeepalive = 30 * time.Second

func registerJobRoutes(app *fiber.App, h *handlers) {
	api := app.Group("/api", h.d.Auth.RequireAuth())

	api.Post("/export", h.startExport)
	api.Get("/export/:id/progress", h.exportProgress)
	api.Get("/export/:id/download", h.exportDownload)
}

func (h *handlers) startExport(c *fiber.Ctx) error {
	var req models.ExportRequest
	if err := c.BodyParser(&req); err != nil || req.PlaylistID == "" {
		return apierror.New(apierror.BadRequest, "playlistId is required")
	}
	jobID := h.d.Export.Start(h.d.Jobs, req)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"jobId": jobID})
}

func (h *handlers) exportProgress(c *fiber.Ctx) error {
	id := c.Params("id")
	events, unsubscribe, ok := h.d.Jobs.Subscribe(id)
	if !ok {
		return apierror.New(apierror.NotFound, "no such job")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		ticker := time.NewTicker(jobKeepalive)
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
				if evt.Terminal() {
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

func (h *handlers) exportDownload(c *fiber.Ctx) error {
	id := c.Params("id")
	path, fileName, ok := h.d.Jobs.DownloadPath(id)
	if !ok {
		job, exists := h.d.Jobs.Get(id)
		if !exists {
			return apierror.New(apierror.NotFound, "no such job")
		}
		if job.Status != models.JobComplete {
			return apierror.New(apierror.Conflict, "job has not completed")
		}
		return apierror.New(apierror.NotFound, "no file staged for this job")
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.presentationml.presentation")
	disposition := fmt.Sprintf("attachment; filename=%q", stampedFileName(fileName))
	c.Set(fiber.HeaderContentDisposition, disposition)
	return c.SendFile(path, false)
}

func stampedFileName(name string) string {
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	return fmt.Sprintf("%s-%d%s", stem, time.Now().UnixMilli(), ext)
}
