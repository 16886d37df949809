package repository

import (
	"context"
	"fmt"

	"dayly-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DeviceRepository handles database operations for push-notification devices
type DeviceRepository struct {
	db *pgxpool.Pool
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *pgxpool.Pool) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert registers a device token, updating the platform and timestamp if
// the (user, token) pair already exists.
func (r *DeviceRepository) Upsert(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO user_devices (user_id, device_token, platform, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, device_token) DO UPDATE SET
			platform = EXCLUDED.platform, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query, device.UserID, device.DeviceToken, device.Platform, device.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}
	return nil
}

// DeleteByToken removes a device token for a user. Deleting an unknown
// token is a no-op.
func (r *DeviceRepository) DeleteByToken(ctx context.Context, userID, token string) error {
	query := `DELETE FROM user_devices WHERE user_id = $1 AND device_token = $2`
	if _, err := r.db.Exec(ctx, query, userID, token); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	return nil
}

// ListByUser returns all registered devices for a user
func (r *DeviceRepository) ListByUser(ctx context.Context, userID string) ([]*models.Device, error) {
	query := `
		SELECT user_id, device_token, platform, created_at, updated_at
		FROM user_devices
		WHERE user_id = $1
	`
	return r.queryDevices(ctx, query, userID)
}

// ListForGroupExcluding returns devices of all active group members except
// the given user. This is the push fan-out recipient set.
func (r *DeviceRepository) ListForGroupExcluding(ctx context.Context, groupID, excludeUserID string) ([]*models.Device, error) {
	query := `
		SELECT d.user_id, d.device_token, d.platform, d.created_at, d.updated_at
		FROM user_devices d
		JOIN group_members m ON m.user_id = d.user_id
		WHERE m.group_id = $1 AND m.is_active AND d.user_id <> $2
	`
	return r.queryDevices(ctx, query, groupID, excludeUserID)
}

func (r *DeviceRepository) queryDevices(ctx context.Context, query string, args ...any) ([]*models.Device, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		var d models.Device
		if err := rows.Scan(&d.UserID, &d.DeviceToken, &d.Platform, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}
	return devices, nil
}
