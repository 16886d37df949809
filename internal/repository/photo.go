package repository

import (
	"context"
	"fmt"
	"time"

	"dayly-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PhotoRepository handles database operations for photos
type PhotoRepository struct {
	db *pgxpool.Pool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create creates a new photo
func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (id, group_id, sender_id, storage_path, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		photo.ID, photo.GroupID, photo.SenderID, photo.StoragePath, photo.CreatedAt, photo.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}
	return nil
}

// Delete removes a photo row. Used only to compensate a lost daily-send
// race; committed photos are otherwise immutable.
func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

// ListActive returns unexpired photos for a group, newest first, with
// sender display names.
func (r *PhotoRepository) ListActive(ctx context.Context, groupID string, now time.Time) ([]*models.PhotoWithSender, error) {
	query := `
		SELECT p.id, p.group_id, p.sender_id, p.storage_path, p.created_at, p.expires_at, u.display_name
		FROM photos p
		JOIN users u ON u.id = p.sender_id
		WHERE p.group_id = $1 AND p.expires_at > $2
		ORDER BY p.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, groupID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	var photos []*models.PhotoWithSender
	for rows.Next() {
		var p models.PhotoWithSender
		err := rows.Scan(&p.ID, &p.GroupID, &p.SenderID, &p.StoragePath, &p.CreatedAt, &p.ExpiresAt, &p.SenderName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}
	return photos, nil
}

// LatestActive returns the most recent unexpired photo for a group, or
// nil if the group has none.
func (r *PhotoRepository) LatestActive(ctx context.Context, groupID string, now time.Time) (*models.PhotoWithSender, error) {
	query := `
		SELECT p.id, p.group_id, p.sender_id, p.storage_path, p.created_at, p.expires_at, u.display_name
		FROM photos p
		JOIN users u ON u.id = p.sender_id
		WHERE p.group_id = $1 AND p.expires_at > $2
		ORDER BY p.created_at DESC
		LIMIT 1
	`
	var p models.PhotoWithSender
	err := r.db.QueryRow(ctx, query, groupID, now).Scan(
		&p.ID, &p.GroupID, &p.SenderID, &p.StoragePath, &p.CreatedAt, &p.ExpiresAt, &p.SenderName,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest photo: %w", err)
	}
	return &p, nil
}

// CountOnDate counts the group's photos created on the given calendar day
func (r *PhotoRepository) CountOnDate(ctx context.Context, groupID string, day time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM photos WHERE group_id = $1 AND (created_at AT TIME ZONE 'UTC')::date = $2`
	var count int
	if err := r.db.QueryRow(ctx, query, groupID, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return count, nil
}
