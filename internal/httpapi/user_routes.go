package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/churchstage/presenter-proxy/internal/apierror"
	"github.com/churchstage/presenter-proxy/internal/auth"
)

func registerUserRoutes(app *fiber.App, h *handlers) {
	g := app.Group("/users", h.d.Auth.RequireAuth(), auth.RequireAdmin())

	g.Get("/", h.listUsers)
	g.Post("/", h.addUser)
	g.Delete("/:email", h.removeUser)
	g.Patch("/:email/admin", h.setUserAdmin)
}

func (h *handlers) listUsers(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"users": h.d.Users.ListAll()})
}

func (h *handlers) addUser(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
		Admin bool   `json:"admin"`
	}
	if err := c.BodyParser(&body); err != nil || body.Email == "" {
		return apierror.New(apierror.BadRequest, "email is required")
	}

	user, err := h.d.Users.Add(body.Email)
	if err != nil {
		return apierror.Wrap(apierror.Internal, "saving user", err)
	}
	if body.Admin {
		if err := h.d.Users.SetAdmin(body.Email, true); err != nil {
			return apierror.Wrap(apierror.Internal, "saving user", err)
		}
		user.Admin = true
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *handlers) removeUser(c *fiber.Ctx) error {
	email := c.Params("email")
	if !h.d.Users.IsAllowed(email) {
		return apierror.New(apierror.NotFound, "no such user")
	}
	if err := h.d.Users.Remove(email); err != nil {
		return apierror.Wrap(apierror.Internal, "removing user", err)
	}
	// The user's sessions must not outlive their allow-listing.
	if err := h.d.Sessions.DestroyAllForEmail(email); err != nil {
		return apierror.Wrap(apierror.Internal, "revoking sessions", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *handlers) setUserAdmin(c *fiber.Ctx) error {
	email := c.Params("email")
	if !h.d.Users.IsAllowed(email) {
		return apierror.New(apierror.NotFound, "no such user")
	}

	var body struct {
		Admin bool `json:"admin"`
	}
	if err := c.BodyParser(&body); err != nil {
		return apierror.New(apierror.BadRequest, "admin must be a boolean")
	}

	if err := h.d.Users.SetAdmin(email, body.Admin); err != nil {
		return apierror.Wrap(apierror.Internal, "updating user", err)
	}
	return c.JSON(fiber.Map{"success": true})
}
