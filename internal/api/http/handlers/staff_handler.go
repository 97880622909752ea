package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staffdesk/internal/api/dto"
	"github.com/spec-kit/staffdesk/internal/domain"
	"github.com/spec-kit/staffdesk/internal/service"
	apperrors "github.com/spec-kit/staffdesk/pkg/util"
)

// StaffHandler exposes credential administration endpoints.
type StaffHandler struct {
	auth  *service.AuthService
	staff *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{auth: authService, staff: staffService}
}

// List handles GET /staff.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	creds, err := h.staff.List(c.Context())
	if err != nil {
		return err
	}

	out := make([]domain.PublicCredential, 0, len(creds))
	for _, cred := range creds {
		out = append(out, cred.Sanitize())
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /staff/:id.
func (h *StaffHandler) Get(c *fiber.Ctx) error {
	cred, err := h.staff.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cred.Sanitize()})
}

// Create handles POST /staff.
func (h *StaffHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	cred, err := h.auth.CreateCredential(c.Context(), service.CreateCredentialInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": cred.Sanitize()})
}

// Update handles PATCH /staff/:id.
func (h *StaffHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	cred, err := h.staff.UpdateProfile(c.Context(), c.Params("id"), service.UpdateProfileInput{
		FullName: req.FullName,
		Email:    req.Email,
		Role:     req.Role,
		Status:   req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cred.Sanitize()})
}

// UpdateGrants handles PUT /staff/:id/permissions.
func (h *StaffHandler) UpdateGrants(c *fiber.Ctx) error {
	var req dto.UpdateGrantsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	cred, err := h.staff.UpdateGrants(c.Context(), c.Params("id"), req.Permissions)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cred.Sanitize()})
}
