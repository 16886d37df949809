package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"dayly-backend/internal/apperr"
	"dayly-backend/internal/models"
	"dayly-backend/internal/sms"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	codeLength = 6
	// No 0/O, 1/I/L: codes get read aloud and typed from small screens
	codeChars = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	// InviteTTL is how long an invite code stays redeemable
	InviteTTL = 7 * 24 * time.Hour
	// duplicateWindow suppresses re-inviting the same phone to the same
	// group within a day
	duplicateWindow = 24 * time.Hour

	maxCodeAttempts = 5
	smsTimeout      = 10 * time.Second
)

// InviteService handles invite code issuance and redemption
type InviteService struct {
	invites InviteStore
	members MembershipStore
	users   UserStore
	sms     sms.Sender

	wg sync.WaitGroup
}

// NewInviteService creates a new invite service
func NewInviteService(invites InviteStore, members MembershipStore, users UserStore, sender sms.Sender) *InviteService {
	return &InviteService{
		invites: invites,
		members: members,
		users:   users,
		sms:     sender,
	}
}

// GenerateCode produces a code that no unredeemed invite currently holds.
// The uniqueness index still backstops the read; Create retries through
// here when an insert collides anyway.
func (s *InviteService) GenerateCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := randomCode()
		inUse, err := s.invites.CodeInUse(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code: %w", err)
		}
		if !inUse {
			return code, nil
		}
	}
	return "", apperr.Newf(apperr.Internal, "failed to generate unique code after %d attempts", maxCodeAttempts)
}

func randomCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}

// Recipients partitions invite targets by account existence
type Recipients struct {
	ExistingUsers []*models.User
	NeedsInvite   []string
}

// ReconcileRecipients splits a phone list into users that already have an
// account and numbers that need an invite.
func (s *InviteService) ReconcileRecipients(ctx context.Context, phones []string) (*Recipients, error) {
	users, err := s.users.FindByPhones(ctx, phones)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile recipients: %w", err)
	}

	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.PhoneNumber] = true
	}

	var needsInvite []string
	for _, phone := range phones {
		if !known[phone] {
			needsInvite = append(needsInvite, phone)
		}
	}
	return &Recipients{ExistingUsers: users, NeedsInvite: needsInvite}, nil
}

// SendInvitesResult reports what SendInvites did
type SendInvitesResult struct {
	Issued       []*models.Invite `json:"issued"`
	AddedMembers []string         `json:"added_members"`
}

// SendInvites issues codes for the phone numbers and adds the already
// registered users as members. Phones with a pending invite to the group
// from the last 24 hours are skipped. SMS dispatch is a best-effort side
// task; its failure never rolls back the persisted invite.
func (s *InviteService) SendInvites(ctx context.Context, groupID, callerID string, phones []string, existingUserIDs []string, now time.Time) (*SendInvitesResult, error) {
	active, err := s.members.IsActiveMember(ctx, groupID, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !active {
		return nil, apperr.New(apperr.Forbidden, "not a member of this group")
	}

	// The whole batch validates before anything persists; one bad phone
	// must not leave earlier invites behind.
	for _, phone := range phones {
		if err := ValidatePhone(phone); err != nil {
			return nil, err
		}
	}

	result := &SendInvitesResult{}

	for _, phone := range phones {
		pending, err := s.invites.PendingExists(ctx, groupID, phone, now.Add(-duplicateWindow))
		if err != nil {
			return nil, fmt.Errorf("failed to check pending invites: %w", err)
		}
		if pending {
			continue
		}

		invite, err := s.issue(ctx, groupID, callerID, phone, now)
		if err != nil {
			return nil, err
		}
		result.Issued = append(result.Issued, invite)
		s.dispatchSMS(phone, invite.Code)
	}

	for _, userID := range existingUserIDs {
		if err := s.members.UpsertActive(ctx, groupID, userID, now); err != nil {
			return nil, fmt.Errorf("failed to add member: %w", err)
		}
		result.AddedMembers = append(result.AddedMembers, userID)
	}

	return result, nil
}

// issue persists one invite, regenerating the code if the insert loses a
// uniqueness race.
func (s *InviteService) issue(ctx context.Context, groupID, callerID, phone string, now time.Time) (*models.Invite, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.GenerateCode(ctx)
		if err != nil {
			return nil, err
		}
		invite := &models.Invite{
			ID:          uuid.New().String(),
			Code:        code,
			GroupID:     groupID,
			PhoneNumber: phone,
			InvitedBy:   callerID,
			CreatedAt:   now,
			ExpiresAt:   now.Add(InviteTTL),
		}
		err = s.invites.Create(ctx, invite)
		if err == nil {
			return invite, nil
		}
		if !apperr.IsKind(err, apperr.Conflict) {
			return nil, fmt.Errorf("failed to persist invite: %w", err)
		}
	}
	return nil, apperr.Newf(apperr.Internal, "failed to persist invite after %d attempts", maxCodeAttempts)
}

// InviteRecipients reconciles the phones and sends invites. Used when a
// group is created with initial invitees.
func (s *InviteService) InviteRecipients(ctx context.Context, groupID, callerID string, phones []string, now time.Time) error {
	recipients, err := s.ReconcileRecipients(ctx, phones)
	if err != nil {
		return err
	}

	existingIDs := make([]string, 0, len(recipients.ExistingUsers))
	for _, u := range recipients.ExistingUsers {
		existingIDs = append(existingIDs, u.ID)
	}

	_, err = s.SendInvites(ctx, groupID, callerID, recipients.NeedsInvite, existingIDs, now)
	return err
}

// Redeem validates the code case-insensitively and activates the caller's
// membership atomically with marking the invite used.
func (s *InviteService) Redeem(ctx context.Context, code, callerID string, now time.Time) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != codeLength {
		return "", apperr.New(apperr.NotFound, "invite not found")
	}
	return s.invites.RedeemForUser(ctx, code, callerID, now)
}

// ListPending returns the group's outstanding invites; Forbidden without
// active membership.
func (s *InviteService) ListPending(ctx context.Context, groupID, callerID string, now time.Time) ([]*models.Invite, error) {
	active, err := s.members.IsActiveMember(ctx, groupID, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !active {
		return nil, apperr.New(apperr.Forbidden, "not a member of this group")
	}
	return s.invites.ListPending(ctx, groupID, now)
}

// dispatchSMS sends the invite text without blocking or failing the caller
func (s *InviteService) dispatchSMS(phone, code string) {
	text := fmt.Sprintf(
		"You've been invited to share one photo a day on Dayly. Get the app and join with code %s - it expires in 7 days.",
		code,
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), smsTimeout)
		defer cancel()

		if _, err := s.sms.Send(ctx, phone, text); err != nil {
			log.Error().Err(err).Str("phone", phone).Msg("Failed to send invite SMS")
		}
	}()
}

// Drain waits for in-flight SMS dispatches, bounded by ctx
func (s *InviteService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
