// Package services implements the business rules: group membership, the
// once-per-day send constraint, photo TTL, invites and the first-photo
// notification trigger. Collaborators arrive as constructor arguments;
// the interfaces below are satisfied by the repository and capability
// packages and by fakes in tests.
package services

import (
	"context"
	"time"

	"dayly-backend/internal/models"
)

// UserStore persists users
type UserStore interface {
	UpsertByPhone(ctx context.Context, phone, displayName string, now time.Time) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	FindByPhones(ctx context.Context, phones []string) ([]*models.User, error)
}

// GroupStore persists groups
type GroupStore interface {
	CreateWithOwner(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id string) (*models.Group, error)
	Rename(ctx context.Context, id, name string) error
}

// MembershipStore persists group memberships
type MembershipStore interface {
	ActiveCount(ctx context.Context, userID string) (int, error)
	IsActiveMember(ctx context.Context, groupID, userID string) (bool, error)
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)
	Deactivate(ctx context.Context, groupID, userID string, now time.Time) error
	UpsertActive(ctx context.Context, groupID, userID string, now time.Time) error
}

// DailySendStore is the once-per-day ledger backing store
type DailySendStore interface {
	HasSent(ctx context.Context, userID, groupID string, day time.Time) (bool, error)
	Mark(ctx context.Context, userID, groupID string, day time.Time) error
}

// PhotoStore persists photos
type PhotoStore interface {
	Create(ctx context.Context, photo *models.Photo) error
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context, groupID string, now time.Time) ([]*models.PhotoWithSender, error)
	LatestActive(ctx context.Context, groupID string, now time.Time) (*models.PhotoWithSender, error)
	CountOnDate(ctx context.Context, groupID string, day time.Time) (int, error)
}

// InviteStore persists invites
type InviteStore interface {
	Create(ctx context.Context, invite *models.Invite) error
	CodeInUse(ctx context.Context, code string) (bool, error)
	PendingExists(ctx context.Context, groupID, phone string, since time.Time) (bool, error)
	ListPending(ctx context.Context, groupID string, now time.Time) ([]*models.Invite, error)
	RedeemForUser(ctx context.Context, code, userID string, now time.Time) (string, error)
}

// DeviceStore persists push-notification device registrations
type DeviceStore interface {
	Upsert(ctx context.Context, device *models.Device) error
	DeleteByToken(ctx context.Context, userID, token string) error
	ListByUser(ctx context.Context, userID string) ([]*models.Device, error)
	ListForGroupExcluding(ctx context.Context, groupID, excludeUserID string) ([]*models.Device, error)
}

// OTPStore persists phone verification codes
type OTPStore interface {
	Create(ctx context.Context, otp *models.OTPCode) error
	FindValid(ctx context.Context, phone, code string, now time.Time) (*models.OTPCode, error)
	MarkUsed(ctx context.Context, id string, now time.Time) error
	InvalidatePending(ctx context.Context, phone string, now time.Time) error
}

// BlobStore stores photo bytes and mints signed viewing URLs
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Delete(ctx context.Context, path string) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// Notifier is told about committed photos. Implementations run the
// fan-out asynchronously; a call never blocks or fails the submission.
type Notifier interface {
	PhotoCommitted(groupID, senderID string, submittedAt time.Time)
}
