package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dayly-backend/internal/apperr"
	"dayly-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InviteRepository handles database operations for invites
type InviteRepository struct {
	db *pgxpool.Pool
}

// NewInviteRepository creates a new invite repository
func NewInviteRepository(db *pgxpool.Pool) *InviteRepository {
	return &InviteRepository{db: db}
}

// Create persists a new invite. Returns apperr.Conflict if the code
// collides with another unredeemed invite, in which case the caller
// regenerates and retries.
func (r *InviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	query := `
		INSERT INTO invites (id, code, group_id, phone_number, invited_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		invite.ID, invite.Code, invite.GroupID, invite.PhoneNumber, invite.InvitedBy,
		invite.CreatedAt, invite.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.Conflict, "invite code already in use", err)
		}
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// CodeInUse checks whether an unredeemed invite already holds the code.
// The check matches the partial unique index, so expired-but-unredeemed
// codes still count as taken.
func (r *InviteRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM invites WHERE upper(code) = $1 AND used_at IS NULL)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, strings.ToUpper(code)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check invite code: %w", err)
	}
	return exists, nil
}

// PendingExists checks whether the phone already has an unredeemed invite
// to the group created after since. Used for duplicate suppression.
func (r *InviteRepository) PendingExists(ctx context.Context, groupID, phone string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM invites
			WHERE group_id = $1 AND phone_number = $2 AND used_at IS NULL AND created_at > $3
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, groupID, phone, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pending invites: %w", err)
	}
	return exists, nil
}

// ListPending returns the group's unredeemed, unexpired invites
func (r *InviteRepository) ListPending(ctx context.Context, groupID string, now time.Time) ([]*models.Invite, error) {
	query := `
		SELECT id, code, group_id, phone_number, invited_by, created_at, expires_at, used_at, used_by
		FROM invites
		WHERE group_id = $1 AND used_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, groupID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []*models.Invite
	for rows.Next() {
		var inv models.Invite
		err := rows.Scan(&inv.ID, &inv.Code, &inv.GroupID, &inv.PhoneNumber, &inv.InvitedBy,
			&inv.CreatedAt, &inv.ExpiresAt, &inv.UsedAt, &inv.UsedBy)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invites: %w", err)
	}
	return invites, nil
}

// RedeemForUser marks the invite redeemed and activates the user's
// membership in one transaction; both happen or neither does. The code is
// matched case-insensitively against unredeemed, unexpired invites.
func (r *InviteRepository) RedeemForUser(ctx context.Context, code, userID string, now time.Time) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var inviteID, groupID string
	err = tx.QueryRow(ctx, `
		SELECT id, group_id FROM invites
		WHERE upper(code) = $1 AND used_at IS NULL AND expires_at > $2
		FOR UPDATE
	`, strings.ToUpper(code), now).Scan(&inviteID, &groupID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", apperr.New(apperr.NotFound, "invite not found")
		}
		return "", fmt.Errorf("failed to look up invite: %w", err)
	}

	var isActive bool
	err = tx.QueryRow(ctx, `
		SELECT is_active FROM group_members
		WHERE group_id = $1 AND user_id = $2
		FOR UPDATE
	`, groupID, userID).Scan(&isActive)
	switch {
	case err == pgx.ErrNoRows:
		_, err = tx.Exec(ctx, `
			INSERT INTO group_members (group_id, user_id, is_active, created_at, updated_at)
			VALUES ($1, $2, TRUE, $3, $3)
		`, groupID, userID, now)
		if err != nil {
			return "", fmt.Errorf("failed to create membership: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("failed to look up membership: %w", err)
	case isActive:
		return "", apperr.New(apperr.AlreadyMember, "already a member of this group")
	default:
		_, err = tx.Exec(ctx, `
			UPDATE group_members SET is_active = TRUE, updated_at = $3
			WHERE group_id = $1 AND user_id = $2
		`, groupID, userID, now)
		if err != nil {
			return "", fmt.Errorf("failed to reactivate membership: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE invites SET used_at = $2, used_by = $3 WHERE id = $1
	`, inviteID, now, userID)
	if err != nil {
		return "", fmt.Errorf("failed to mark invite redeemed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit redemption: %w", err)
	}
	return groupID, nil
}
