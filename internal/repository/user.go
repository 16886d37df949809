package repository

import (
	"context"
	"fmt"
	"time"

	"dayly-backend/internal/apperr"
	"dayly-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertByPhone creates the user on first verification or refreshes
// last_active on a repeat one. A non-empty displayName overwrites the
// stored name; an empty one leaves it alone.
func (r *UserRepository) UpsertByPhone(ctx context.Context, phone, displayName string, now time.Time) (*models.User, error) {
	query := `
		INSERT INTO users (id, phone_number, display_name, created_at, last_active)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (phone_number) DO UPDATE SET
			last_active = EXCLUDED.last_active,
			display_name = CASE WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name ELSE users.display_name END
		RETURNING id, phone_number, display_name, created_at, last_active
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, uuid.New().String(), phone, displayName, now).Scan(
		&user.ID, &user.PhoneNumber, &user.DisplayName, &user.CreatedAt, &user.LastActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, phone_number, display_name, created_at, last_active
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.PhoneNumber, &user.DisplayName, &user.CreatedAt, &user.LastActive,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.Wrap(apperr.NotFound, "user not found", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// FindByPhones retrieves the users whose phone number appears in phones.
// Numbers with no matching user are simply absent from the result.
func (r *UserRepository) FindByPhones(ctx context.Context, phones []string) ([]*models.User, error) {
	if len(phones) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, phone_number, display_name, created_at, last_active
		FROM users
		WHERE phone_number = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, phones)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by phone: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.ID, &user.PhoneNumber, &user.DisplayName, &user.CreatedAt, &user.LastActive)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}
