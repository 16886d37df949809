package services

import (
	"context"
	"fmt"
	"time"

	"dayly-backend/internal/apperr"
	"dayly-backend/internal/models"
	"dayly-backend/internal/push"
)

// DeviceService handles push-notification device registration
type DeviceService struct {
	devices DeviceStore
}

// NewDeviceService creates a new device service
func NewDeviceService(devices DeviceStore) *DeviceService {
	return &DeviceService{devices: devices}
}

// Register upserts a device token for the user
func (s *DeviceService) Register(ctx context.Context, userID, token, platform string, now time.Time) error {
	if token == "" {
		return apperr.New(apperr.InvalidInput, "device_token is required")
	}
	if platform != push.PlatformIOS && platform != push.PlatformAndroid {
		return apperr.Newf(apperr.InvalidInput, "unsupported platform %q", platform)
	}

	device := &models.Device{
		UserID:      userID,
		DeviceToken: token,
		Platform:    platform,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.devices.Upsert(ctx, device); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

// Unregister removes a device token; unknown tokens are a no-op
func (s *DeviceService) Unregister(ctx context.Context, userID, token string) error {
	if token == "" {
		return apperr.New(apperr.InvalidInput, "device_token is required")
	}
	return s.devices.DeleteByToken(ctx, userID, token)
}

// List returns the user's registered devices
func (s *DeviceService) List(ctx context.Context, userID string) ([]*models.Device, error) {
	return s.devices.ListByUser(ctx, userID)
}
