package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

func registerHealthRoutes(app *fiber.App, h *handlers) {
	app.Get("/health", h.health)
}

func (h *handlers) health(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	}

	if c.Query("check") == "tunnel" {
		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		reachable := probeTunnel(ctx, h.d.Config.PublicBaseURL())
		body["tunnel"] = fiber.Map{
			"reachable": reachable,
			"latencyMs": time.Since(start).Milliseconds(),
		}
	}

	return c.JSON(body)
}

// probeTunnel round-trips a plain GET against the deployment's own public
// base URL, confirming the tunnel actually carries traffic back in rather
// than just that the local Presenter is reachable (that's /api/status's
// job).
func probeTunnel(ctx context.Context, baseURL string) bool {
	if baseURL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
