package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staffdesk/internal/api/dto"
	"github.com/spec-kit/staffdesk/internal/auth"
	"github.com/spec-kit/staffdesk/internal/service"
	apperrors "github.com/spec-kit/staffdesk/pkg/util"
)

// AuthHandler exposes login and password lifecycle endpoints.
type AuthHandler struct {
	auth       *service.AuthService
	production bool
}

// NewAuthHandler constructs handler. When production is true the
// forgot-password response never carries the issued token.
func NewAuthHandler(authService *service.AuthService, production bool) *AuthHandler {
	return &AuthHandler{auth: authService, production: production}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UsernameOrEmail == "" || req.Password == "" {
		return apperrors.NewValidationError("usernameOrEmail and password required", nil)
	}

	result, err := h.auth.Login(c.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.LoginResponse{
			Token:     result.Token,
			ExpiresAt: result.ExpiresAt,
			User:      result.Credential.Sanitize(),
		},
	})
}

// Logout handles POST /auth/logout. Stateless tokens make this a
// server-side no-op; clients clear their local session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	cred, _ := auth.CredentialFromContext(c)
	id := ""
	if cred != nil {
		id = cred.ID
	}
	if err := h.auth.Logout(c.Context(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "logged out"}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	cred, ok := auth.CredentialFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": cred.Sanitize()})
}

// Session handles GET /auth/session behind optional authentication:
// it reports whether a valid credential accompanied the request but
// never fails, whatever the token looks like.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	cred, ok := auth.CredentialFromContext(c)
	if !ok {
		return c.JSON(fiber.Map{"data": fiber.Map{"authenticated": false}})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"authenticated": true,
		"user":          cred.Sanitize(),
	}})
}

// ForgotPassword handles POST /auth/forgot-password. The response is
// identical for known and unknown emails.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	token, err := h.auth.ForgotPassword(c.Context(), req.Email)
	if err != nil {
		return err
	}

	data := fiber.Map{"message": "if the email is registered, a reset token has been issued"}
	if token != "" && !h.production {
		// Diagnostic convenience for development environments only.
		data["reset_token"] = token
	}
	return c.JSON(fiber.Map{"data": data})
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.auth.ResetPassword(c.Context(), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "password updated"}})
}

// ChangePassword handles POST /auth/change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	cred, ok := auth.CredentialFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.auth.ChangePassword(c.Context(), cred.ID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": fiber.Map{"message": "password updated"}})
}
