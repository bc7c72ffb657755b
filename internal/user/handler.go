package user

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/wichananm65/fullstack-starter/internal/apperror"
	"github.com/wichananm65/fullstack-starter/internal/auth"
	"github.com/wichananm65/fullstack-starter/internal/validation"
)

type Handler struct {
	service  *Service
	issuer   *auth.TokenIssuer
	denylist auth.Denylist
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72,bcryptlen,password"`
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
}

// profileUpdateRequest accepts partial payloads; absent fields stay as they are.
type profileUpdateRequest struct {
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=50"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=50"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=8,max=72,bcryptlen,password"`
}

type adminUpdateRequest struct {
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=50"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=50"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
	Active    *bool   `json:"active,omitempty"`
}

func NewHandler(service *Service, issuer *auth.TokenIssuer, denylist auth.Denylist) *Handler {
	return &Handler{service: service, issuer: issuer, denylist: denylist}
}

// RegisterPublicRoutes mounts the credential endpoints. guards run before
// each of them (rate limiting in production).
func (h *Handler) RegisterPublicRoutes(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/auth/register", chain(guards, h.register)...)
	router.Post("/auth/login", chain(guards, h.login)...)
}

// RegisterProtectedRoutes mounts the endpoints that need a verified token.
// guards must put one in c.Locals; they run per route so unknown paths still
// reach the 404 handler.
func (h *Handler) RegisterProtectedRoutes(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/auth/logout", chain(guards, h.logout)...)
	router.Get("/auth/verify", chain(guards, h.verify)...)

	// profile routes go first so "profile" is never taken for an :id
	router.Get("/user/profile", chain(guards, h.getProfile)...)
	router.Put("/user/profile", chain(guards, h.updateProfile)...)

	admin := auth.RequireRole(string(RoleAdmin))
	router.Get("/user", chain(guards, admin, h.listUsers)...)
	router.Get("/user/:id", chain(guards, admin, h.getUser)...)
	router.Put("/user/:id", chain(guards, admin, h.updateUser)...)
	router.Delete("/user/:id", chain(guards, admin, h.deleteUser)...)
}

func chain(guards []fiber.Handler, handlers ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(guards)+len(handlers))
	out = append(out, guards...)
	return append(out, handlers...)
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.Validation("invalid request body", nil)
	}
	return validation.Struct(out)
}

func (h *Handler) issue(u User) (string, error) {
	token, _, err := h.issuer.Issue(auth.Subject{UserID: u.ID, Email: u.Email, Role: string(u.Role)})
	if err != nil {
		return "", apperror.Internal(err)
	}
	return token, nil
}

func (h *Handler) register(c *fiber.Ctx) error {
	payload := new(registerRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	created, err := h.service.Register(c.UserContext(), RegisterInput{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})
	if err != nil {
		return toAppError(err)
	}

	token, err := h.issue(created)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": created, "token": token})
}

func (h *Handler) login(c *fiber.Ctx) error {
	payload := new(loginRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	user, err := h.service.Authenticate(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return toAppError(err)
	}

	token, err := h.issue(user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

func (h *Handler) logout(c *fiber.Ctx) error {
	claims, err := auth.ClaimsFromCtx(c)
	if err != nil {
		return err
	}
	if claims.ExpiresAt != nil {
		if err := h.denylist.Revoke(c.UserContext(), claims.ID, claims.ExpiresAt.Time); err != nil {
			return apperror.Internal(err)
		}
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// verify confirms the token is valid and its account still usable.
func (h *Handler) verify(c *fiber.Ctx) error {
	claims, err := auth.ClaimsFromCtx(c)
	if err != nil {
		return err
	}
	user, err := h.service.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.Unauthorized("account no longer exists")
		}
		return toAppError(err)
	}
	if !user.Active {
		return toAppError(ErrInactive)
	}
	return c.JSON(fiber.Map{"valid": true, "user": user})
}

func (h *Handler) getProfile(c *fiber.Ctx) error {
	claims, err := auth.ClaimsFromCtx(c)
	if err != nil {
		return err
	}
	user, err := h.service.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(user)
}

func (h *Handler) updateProfile(c *fiber.Ctx) error {
	claims, err := auth.ClaimsFromCtx(c)
	if err != nil {
		return err
	}
	payload := new(profileUpdateRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	updated, err := h.service.UpdateProfile(c.UserContext(), claims.UserID, ProfileUpdate{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Password:  payload.Password,
	})
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(updated)
}

func (h *Handler) listUsers(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("limit", DefaultPageSize))
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(fiber.Map{
		"users": page.Users,
		"total": page.Total,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

func (h *Handler) getUser(c *fiber.Ctx) error {
	user, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(user)
}

func (h *Handler) updateUser(c *fiber.Ctx) error {
	payload := new(adminUpdateRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	in := AdminUpdate{
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Active:    payload.Active,
	}
	if payload.Role != nil {
		role := Role(strings.ToLower(*payload.Role))
		in.Role = &role
	}

	updated, err := h.service.AdminUpdate(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(updated)
}

func (h *Handler) deleteUser(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return toAppError(err)
	}
	return c.JSON(fiber.Map{"message": "User deleted"})
}

// toAppError maps service errors onto HTTP-facing kinds. Anything unknown is
// forwarded as internal.
func toAppError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperror.NotFound("user not found")
	case errors.Is(err, ErrEmailExists):
		return apperror.Validation("email already exists", map[string]string{"email": "is already registered"})
	case errors.Is(err, ErrInvalidCredentials):
		return apperror.Unauthorized("invalid email or password")
	case errors.Is(err, ErrInactive):
		return apperror.Unauthorized("account is disabled")
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return apperror.Validation("", map[string]string{"password": "is too long"})
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Internal(err)
}
