package repository

import (
	"context"
	"fmt"
	"time"

	"dayly-backend/internal/apperr"
	"dayly-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MembershipRepository handles database operations for group memberships
type MembershipRepository struct {
	db *pgxpool.Pool
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// ActiveCount returns how many active memberships a user holds
func (r *MembershipRepository) ActiveCount(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM group_members WHERE user_id = $1 AND is_active`
	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return count, nil
}

// IsActiveMember checks whether the user has an active membership in the group
func (r *MembershipRepository) IsActiveMember(ctx context.Context, groupID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2 AND is_active)`
	var active bool
	if err := r.db.QueryRow(ctx, query, groupID, userID).Scan(&active); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return active, nil
}

// ListMembers returns the active roster of a group
func (r *MembershipRepository) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	query := `
		SELECT u.id, u.display_name
		FROM group_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1 AND m.is_active
		ORDER BY m.created_at
	`
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

// ListGroupsForUser returns every group where the user is an active member
func (r *MembershipRepository) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	query := `
		SELECT g.id, g.name, g.created_by, g.created_at
		FROM group_members m
		JOIN groups g ON g.id = m.group_id
		WHERE m.user_id = $1 AND m.is_active
		ORDER BY g.created_at, g.id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}
	return groups, nil
}

// Deactivate flips the membership to inactive. Absent or already-inactive
// memberships are uniformly "no such active membership".
func (r *MembershipRepository) Deactivate(ctx context.Context, groupID, userID string, now time.Time) error {
	query := `
		UPDATE group_members
		SET is_active = FALSE, updated_at = $3
		WHERE group_id = $1 AND user_id = $2 AND is_active
	`
	result, err := r.db.Exec(ctx, query, groupID, userID, now)
	if err != nil {
		return fmt.Errorf("failed to deactivate membership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "no active membership")
	}
	return nil
}

// UpsertActive creates an active membership or reactivates an inactive
// one. Idempotent for already-active members.
func (r *MembershipRepository) UpsertActive(ctx context.Context, groupID, userID string, now time.Time) error {
	query := `
		INSERT INTO group_members (group_id, user_id, is_active, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3, $3)
		ON CONFLICT (group_id, user_id) DO UPDATE SET
			is_active = TRUE, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.Exec(ctx, query, groupID, userID, now); err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}
	return nil
}
