package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feedapp/notification-service/internal/domain"
	"github.com/feedapp/notification-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeviceService manages a user's push endpoint registry.
type DeviceService struct {
	devices repository.DeviceRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewDeviceService(devices repository.DeviceRepository, logger *zap.Logger) (*DeviceService, error) {
	if devices == nil {
		return nil, fmt.Errorf("device repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeviceService{
		devices: devices,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Register stores a device token for the user. Re-registering a token the
// registry already knows rebinds it to this user and reactivates it, so a
// phone handed to a new account stops notifying the old one.
func (s *DeviceService) Register(ctx context.Context, userID, token string, platform domain.Platform, hardwareID string) (*domain.Device, error) {
	device := &domain.Device{
		ID:         uuid.NewString(),
		UserID:     strings.TrimSpace(userID),
		Token:      strings.TrimSpace(token),
		Platform:   platform,
		HardwareID: strings.TrimSpace(hardwareID),
		IsActive:   true,
		CreatedAt:  s.now().UTC(),
		UpdatedAt:  s.now().UTC(),
	}
	if err := device.Validate(); err != nil {
		return nil, err
	}

	if err := s.devices.Upsert(ctx, device); err != nil {
		return nil, err
	}

	s.logger.Info("device registered",
		zap.String("deviceId", device.ID),
		zap.String("userId", device.UserID),
		zap.String("platform", device.Platform.String()),
	)
	return device, nil
}

// Deactivate turns off one of the user's devices. A device id belonging to
// another user resolves to ErrNotFound.
func (s *DeviceService) Deactivate(ctx context.Context, userID, deviceID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(deviceID) == "" {
		return fmt.Errorf("%w: device id is required", domain.ErrValidation)
	}

	device, err := s.devices.GetByID(ctx, strings.TrimSpace(deviceID))
	if err != nil {
		return err
	}
	if device.UserID != strings.TrimSpace(userID) {
		return fmt.Errorf("%w: device %s", domain.ErrNotFound, deviceID)
	}

	return s.devices.Deactivate(ctx, device.ID)
}

// DeactivateAll turns off every active device of the user and returns how
// many were affected. Used on logout-everywhere.
func (s *DeviceService) DeactivateAll(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	count, err := s.devices.DeactivateAllForUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return 0, err
	}

	s.logger.Info("deactivated all devices for user",
		zap.String("userId", userID),
		zap.Int64("count", count),
	)
	return count, nil
}
