package models

import "time"

// User represents a user in the system. Users are created on first
// successful phone verification and are never hard-deleted.
type User struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`
}

// Group represents a group of users sharing daily photos
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership links a user to a group. Exactly one row per (group, user)
// pair; leaving flips is_active instead of deleting the row.
type Membership struct {
	GroupID   string    `json:"group_id"`
	UserID    string    `json:"user_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a roster entry in a group listing
type Member struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// Photo represents a photo sent to a group. Immutable once created;
// excluded from listings once expired.
type Photo struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"group_id"`
	SenderID    string    `json:"sender_id"`
	StoragePath string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// PhotoWithSender is a photo joined with its sender's display name
type PhotoWithSender struct {
	Photo
	SenderName string `json:"sender_name,omitempty"`
}

// Invite represents an invite code for a phone number to join a group
type Invite struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	GroupID     string     `json:"group_id"`
	PhoneNumber string     `json:"phone_number"`
	InvitedBy   string     `json:"invited_by"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	UsedBy      *string    `json:"used_by,omitempty"`
}

// Device represents a registered push-notification device token
type Device struct {
	UserID      string    `json:"user_id"`
	DeviceToken string    `json:"device_token"`
	Platform    string    `json:"platform"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OTPCode represents a one-time verification code sent to a phone number
type OTPCode struct {
	ID          string     `json:"id"`
	PhoneNumber string     `json:"phone_number"`
	Code        string     `json:"-"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
