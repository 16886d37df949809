package repository

import (
	"context"
	"fmt"
	"time"

	"dayly-backend/internal/apperr"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DailySendRepository is the once-per-day ledger. Rows are only ever
// inserted; the (user, group, sent_on) primary key is the single source of
// truth for the daily cap across concurrent requests and server processes.
type DailySendRepository struct {
	db *pgxpool.Pool
}

// NewDailySendRepository creates a new daily send repository
func NewDailySendRepository(db *pgxpool.Pool) *DailySendRepository {
	return &DailySendRepository{db: db}
}

// HasSent checks whether the user already sent to the group on the given day
func (r *DailySendRepository) HasSent(ctx context.Context, userID, groupID string, day time.Time) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM daily_sends WHERE user_id = $1 AND group_id = $2 AND sent_on = $3)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, groupID, day).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check daily send: %w", err)
	}
	return exists, nil
}

// Mark records the send. Returns apperr.Conflict if a record for the day
// already exists, which is how the check-then-mark race is decided.
func (r *DailySendRepository) Mark(ctx context.Context, userID, groupID string, day time.Time) error {
	query := `INSERT INTO daily_sends (user_id, group_id, sent_on) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, query, userID, groupID, day); err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.Conflict, "already sent today", err)
		}
		return fmt.Errorf("failed to mark daily send: %w", err)
	}
	return nil
}
