package services

import (
	"context"
	"fmt"
	"time"

	"dayly-backend/internal/apperr"
	"dayly-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxGroupsPerUser = 5

// InviteDispatcher reconciles and sends invites for a set of phone
// numbers. GroupService hands initial invites off through this rather
// than owning invite logic itself.
type InviteDispatcher interface {
	InviteRecipients(ctx context.Context, groupID, callerID string, phones []string, now time.Time) error
}

// GroupService handles group and membership business logic
type GroupService struct {
	groups  GroupStore
	members MembershipStore
	ledger  *Ledger
	photos  PhotoStore
	invites InviteDispatcher
}

// NewGroupService creates a new group service
func NewGroupService(
	groups GroupStore,
	members MembershipStore,
	ledger *Ledger,
	photos PhotoStore,
	invites InviteDispatcher,
) *GroupService {
	return &GroupService{
		groups:  groups,
		members: members,
		ledger:  ledger,
		photos:  photos,
		invites: invites,
	}
}

// LatestPhoto summarizes the most recent active photo of a group
type LatestPhoto struct {
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// GroupSummary is a group with its roster and the caller's daily state
type GroupSummary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	Members     []models.Member `json:"members"`
	SentToday   bool            `json:"sent_today"`
	LatestPhoto *LatestPhoto    `json:"latest_photo,omitempty"`
}

// Create creates a group with the caller as its first active member.
// Initial invite phones are validated here and handed to the invite
// engine after the group exists.
func (s *GroupService) Create(ctx context.Context, ownerID, name string, invitePhones []string, now time.Time) (*models.Group, error) {
	name, err := ValidateGroupName(name)
	if err != nil {
		return nil, err
	}
	for _, phone := range invitePhones {
		if err := ValidatePhone(phone); err != nil {
			return nil, err
		}
	}

	count, err := s.members.ActiveCount(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count memberships: %w", err)
	}
	if count >= maxGroupsPerUser {
		return nil, apperr.Newf(apperr.LimitExceeded, "cannot belong to more than %d groups", maxGroupsPerUser)
	}

	group := &models.Group{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedBy: ownerID,
		CreatedAt: now,
	}
	if err := s.groups.CreateWithOwner(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	if len(invitePhones) > 0 {
		if err := s.invites.InviteRecipients(ctx, group.ID, ownerID, invitePhones, now); err != nil {
			// The group exists; invite failures are reported, not fatal
			log.Error().
				Err(err).
				Str("group_id", group.ID).
				Msg("Failed to send initial invites")
		}
	}

	return group, nil
}

// List returns a summary of every group where the caller is active
func (s *GroupService) List(ctx context.Context, userID string, now time.Time) ([]*GroupSummary, error) {
	groups, err := s.members.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	day := Day(now)
	summaries := make([]*GroupSummary, 0, len(groups))
	for _, g := range groups {
		summary, err := s.summarize(ctx, g, userID, day, now)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Get returns the summary of one group; Forbidden without active membership
func (s *GroupService) Get(ctx context.Context, groupID, callerID string, now time.Time) (*GroupSummary, error) {
	if err := s.requireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, group, callerID, Day(now), now)
}

// Rename changes the group name; Forbidden without active membership
func (s *GroupService) Rename(ctx context.Context, groupID, callerID, newName string) error {
	name, err := ValidateGroupName(newName)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, groupID, callerID); err != nil {
		return err
	}
	return s.groups.Rename(ctx, groupID, name)
}

// Leave flips the caller's membership to inactive. Leaving twice surfaces
// NotFound: absence and inactivity are uniformly "no such active
// membership".
func (s *GroupService) Leave(ctx context.Context, groupID, callerID string, now time.Time) error {
	return s.members.Deactivate(ctx, groupID, callerID, now)
}

func (s *GroupService) summarize(ctx context.Context, group *models.Group, userID string, day, now time.Time) (*GroupSummary, error) {
	members, err := s.members.ListMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	sentToday, err := s.ledger.HasSentToday(ctx, userID, group.ID, day)
	if err != nil {
		return nil, err
	}

	summary := &GroupSummary{
		ID:        group.ID,
		Name:      group.Name,
		CreatedBy: group.CreatedBy,
		CreatedAt: group.CreatedAt,
		Members:   members,
		SentToday: sentToday,
	}

	latest, err := s.photos.LatestActive(ctx, group.ID, now)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		summary.LatestPhoto = &LatestPhoto{
			SenderID:   latest.SenderID,
			SenderName: latest.SenderName,
			CreatedAt:  latest.CreatedAt,
		}
	}
	return summary, nil
}

func (s *GroupService) requireMember(ctx context.Context, groupID, userID string) error {
	active, err := s.members.IsActiveMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !active {
		return apperr.New(apperr.Forbidden, "not a member of this group")
	}
	return nil
}
