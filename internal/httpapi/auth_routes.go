package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/churchstage/presenter-proxy/internal/apierror"
	"github.com/churchstage/presenter-proxy/internal/auth"
)

func registerAuthRoutes(app *fiber.App, h *handlers) {
	g := app.Group("/auth", auth.RateLimiter(20, 15*time.Minute))

	g.Get("/status", h.authStatus)
	g.Get("/:provider", h.authStart)
	g.Get("/:provider/callback", h.authCallback)

	app.Get("/auth/me", h.d.Auth.RequireAuth(), h.authMe)
	app.Post("/auth/logout", h.authLogout)
}

func (h *handlers) authStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"googleOAuth":      h.d.Auth.OAuthConfigured(),
		"allowedUserCount": h.d.Auth.AllowedUserCount(),
	})
}

func (h *handlers) authStart(c *fiber.Ctx) error {
	provider := c.Params("provider")
	if provider != "google" || !h.d.Auth.OAuthConfigured() {
		return apierror.New(apierror.OAuthNotConfigured, "oauth is not configured on this server").
			WithHint("set OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET")
	}
	state := h.d.Auth.NewState()
	return c.Redirect(h.d.Auth.Provider().AuthCodeURL(state), fiber.StatusFound)
}

func (h *handlers) authCallback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	if provider != "google" || !h.d.Auth.OAuthConfigured() {
		return apierror.New(apierror.OAuthNotConfigured, "oauth is not configured on this server")
	}

	state := c.Query("state")
	if !h.d.Auth.ConsumeState(state) {
		return c.Redirect("/?error=access_denied", fiber.StatusFound)
	}

	code := c.Query("code")
	if code == "" {
		return c.Redirect("/?error=access_denied", fiber.StatusFound)
	}

	identity, err := h.d.Auth.Provider().Exchange(c.Context(), code)
	if err != nil {
		return c.Redirect("/?error=access_denied", fiber.StatusFound)
	}

	if !h.d.Users.IsAllowed(identity.Email) {
		return c.Redirect("/?error=access_denied", fiber.StatusFound)
	}

	cookieValue, err := h.d.Auth.Login(identity)
	if err != nil {
		return apierror.Wrap(apierror.Internal, "creating session", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    cookieValue,
		HTTPOnly: true,
		SameSite: "Lax",
		Secure:   h.d.Config.IsHTTPS(),
		Expires:  time.Now().Add(6 * time.Hour),
		Path:     "/",
	})

	return c.Redirect("/", fiber.StatusFound)
}

func (h *handlers) authMe(c *fiber.Ctx) error {
	id, _ := auth.CurrentIdentity(c)
	return c.JSON(fiber.Map{
		"authenticated": true,
		"method":        string(id.Method),
		"email":         id.Email,
		"admin":         id.Admin,
	})
}

func (h *handlers) authLogout(c *fiber.Ctx) error {
	cookieValue := c.Cookies(auth.CookieName)
	if cookieValue != "" {
		h.d.Auth.Logout(cookieValue)
	}
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		HTTPOnly: true,
		Expires:  time.Now().Add(-time.Hour),
		Path:     "/",
	})
	return c.JSON(fiber.Map{"success": true})
}
