package repository

import (
	"context"
	"fmt"
	"time"

	"dayly-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OTPRepository handles database operations for phone verification codes
type OTPRepository struct {
	db *pgxpool.Pool
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create inserts a new verification code
func (r *OTPRepository) Create(ctx context.Context, otp *models.OTPCode) error {
	query := `
		INSERT INTO otp_codes (id, phone_number, code, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, otp.ID, otp.PhoneNumber, otp.Code, otp.ExpiresAt, otp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create otp: %w", err)
	}
	return nil
}

// FindValid finds an unused, unexpired code for the phone number. Returns
// nil without error when no such code exists.
func (r *OTPRepository) FindValid(ctx context.Context, phone, code string, now time.Time) (*models.OTPCode, error) {
	query := `
		SELECT id, phone_number, code, expires_at, used_at, created_at
		FROM otp_codes
		WHERE phone_number = $1 AND code = $2 AND expires_at > $3 AND used_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`
	var otp models.OTPCode
	err := r.db.QueryRow(ctx, query, phone, code, now).Scan(
		&otp.ID, &otp.PhoneNumber, &otp.Code, &otp.ExpiresAt, &otp.UsedAt, &otp.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find otp: %w", err)
	}
	return &otp, nil
}

// MarkUsed marks a code as consumed
func (r *OTPRepository) MarkUsed(ctx context.Context, id string, now time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE otp_codes SET used_at = $2 WHERE id = $1`, id, now); err != nil {
		return fmt.Errorf("failed to mark otp used: %w", err)
	}
	return nil
}

// InvalidatePending expires all outstanding codes for a phone number.
// Called before issuing a new code so only the latest one verifies.
func (r *OTPRepository) InvalidatePending(ctx context.Context, phone string, now time.Time) error {
	query := `
		UPDATE otp_codes SET used_at = $2
		WHERE phone_number = $1 AND used_at IS NULL AND expires_at > $2
	`
	if _, err := r.db.Exec(ctx, query, phone, now); err != nil {
		return fmt.Errorf("failed to invalidate otps: %w", err)
	}
	return nil
}
