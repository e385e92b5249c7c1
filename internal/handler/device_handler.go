package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feedapp/notification-service/internal/domain"
	"github.com/gofiber/fiber/v2"
)

type DeviceService interface {
	Register(ctx context.Context, userID, token string, platform domain.Platform, hardwareID string) (*domain.Device, error)
	Deactivate(ctx context.Context, userID, deviceID string) error
	DeactivateAll(ctx context.Context, userID string) (int64, error)
}

type DeviceHandler struct {
	service DeviceService
}

func NewDeviceHandler(service DeviceService) (*DeviceHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("device service is required")
	}
	return &DeviceHandler{service: service}, nil
}

func RegisterDeviceRoutes(router fiber.Router, service DeviceService) error {
	h, err := NewDeviceHandler(service)
	if err != nil {
		return err
	}

	router.Post("/devices", h.RegisterDevice)
	router.Post("/devices/deactivate-all", h.DeactivateAllDevices)
	router.Delete("/devices/:id", h.DeactivateDevice)

	return nil
}

type registerDeviceRequest struct {
	Token      string `json:"token"`
	Platform   string `json:"platform"`
	HardwareID string `json:"hardwareId"`
}

type deviceResponse struct {
	ID         string    `json:"id"`
	Token      string    `json:"token"`
	Platform   string    `json:"platform"`
	HardwareID string    `json:"hardwareId,omitempty"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (h *DeviceHandler) RegisterDevice(c *fiber.Ctx) error {
	var req registerDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	platform, err := domain.ParsePlatformFromString(req.Platform)
	if err != nil {
		return toHTTPError(err)
	}

	device, err := h.service.Register(c.Context(), AuthenticatedUserID(c), req.Token, platform, req.HardwareID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toDeviceResponse(device))
}

func (h *DeviceHandler) DeactivateDevice(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Deactivate(c.Context(), AuthenticatedUserID(c), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"deviceId": id,
		"isActive": false,
	})
}

func (h *DeviceHandler) DeactivateAllDevices(c *fiber.Ctx) error {
	count, err := h.service.DeactivateAll(c.Context(), AuthenticatedUserID(c))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"deactivated": count,
	})
}

func toDeviceResponse(d *domain.Device) deviceResponse {
	if d == nil {
		return deviceResponse{}
	}

	return deviceResponse{
		ID:         d.ID,
		Token:      d.Token,
		Platform:   d.Platform.String(),
		HardwareID: d.HardwareID,
		IsActive:   d.IsActive,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
