package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"dayly-backend/internal/apperr"
	"dayly-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCodeShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := randomCode()
		require.Len(t, code, codeLength)
		for _, c := range code {
			assert.Contains(t, codeChars, string(c), "code %q uses a character outside the alphabet", code)
		}
	}
}

func TestGenerateCodeSkipsInUse(t *testing.T) {
	e := newEnv()

	code, err := e.inviteSvc.GenerateCode(context.Background())
	require.NoError(t, err)

	require.NoError(t, e.invites.Create(context.Background(), &models.Invite{
		ID: "inv-1", Code: code, GroupID: "g", PhoneNumber: "+15551230009",
		InvitedBy: "u", CreatedAt: testNow, ExpiresAt: testNow.Add(InviteTTL),
	}))

	// The used code must not be handed out again
	next, err := e.inviteSvc.GenerateCode(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, code, next)
}

func TestSendInvites(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "+15551230001", "Alice")
	group := e.addGroup(t, "Family", alice.ID)

	res, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230002", "+15551230003"}, nil, testNow)
	require.NoError(t, err)
	require.Len(t, res.Issued, 2)

	for _, inv := range res.Issued {
		assert.Equal(t, group.ID, inv.GroupID)
		assert.Equal(t, alice.ID, inv.InvitedBy)
		assert.Equal(t, testNow.Add(InviteTTL), inv.ExpiresAt)
		assert.Len(t, inv.Code, codeLength)
	}

	require.NoError(t, e.inviteSvc.Drain(context.Background()))
	msgs := e.smsSender.messages()
	require.Len(t, msgs, 2)
	allTexts := msgs[0].text + "\n" + msgs[1].text
	for _, inv := range res.Issued {
		assert.Contains(t, allTexts, inv.Code)
	}
}

func TestSendInvitesInvalidPhoneRejectsWholeBatch(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "+15551230001", "Alice")
	group := e.addGroup(t, "Family", alice.ID)

	_, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230002", "bogus"}, nil, testNow)
	assert.True(t, apperr.IsKind(err, apperr.InvalidInput))

	// Nothing persisted, nothing dispatched: the valid phone must not get
	// an invite ahead of the failed batch
	require.NoError(t, e.inviteSvc.Drain(context.Background()))
	pending, err := e.invites.ListPending(context.Background(), group.ID, testNow)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, e.smsSender.messages())

	// Retrying with the corrected list issues the invite; the duplicate
	// window has nothing to suppress against
	res, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230002"}, nil, testNow)
	require.NoError(t, err)
	assert.Len(t, res.Issued, 1)
}

func TestSendInvitesForbiddenForNonMember(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "+15551230001", "Alice")
	mallory := e.addUser(t, "+15551230002", "Mallory")
	group := e.addGroup(t, "Family", alice.ID)

	_, err := e.inviteSvc.SendInvites(context.Background(), group.ID, mallory.ID,
		[]string{"+15551230003"}, nil, testNow)
	assert.True(t, apperr.IsKind(err, apperr.Forbidden))
}

func TestSendInvitesSuppressesRecentDuplicate(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "+15551230001", "Alice")
	group := e.addGroup(t, "Family", alice.ID)

	first, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230002"}, nil, testNow)
	require.NoError(t, err)
	require.Len(t, first.Issued, 1)

	// Same phone within 24h: silently skipped
	again, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230002"}, nil, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again.Issued)

	// After the window a fresh invite goes out
	later, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230002"}, nil, testNow.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Len(t, later.Issued, 1)
}

func TestSendInvitesSMSFailureKeepsInvite(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "+15551230001", "Alice")
	group := e.addGroup(t, "Family", alice.ID)
	e.smsSender.err = assert.AnError

	res, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230002"}, nil, testNow)
	require.NoError(t, err, "SMS failure must not fail the invite")
	require.Len(t, res.Issued, 1)

	require.NoError(t, e.inviteSvc.Drain(context.Background()))
	pending, err := e.invites.ListPending(context.Background(), group.ID, testNow)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestReconcileRecipients(t *testing.T) {
	e := newEnv()
	bob := e.addUser(t, "+15551230002", "Bob")

	recipients, err := e.inviteSvc.ReconcileRecipients(context.Background(),
		[]string{"+15551230002", "+15551230003"})
	require.NoError(t, err)
	require.Len(t, recipients.ExistingUsers, 1)
	assert.Equal(t, bob.ID, recipients.ExistingUsers[0].ID)
	assert.Equal(t, []string{"+15551230003"}, recipients.NeedsInvite)
}

func TestInviteRecipientsAddsExistingUserIdempotently(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "+15551230001", "Alice")
	bob := e.addUser(t, "+15551230002", "Bob")
	group := e.addGroup(t, "Family", alice.ID)

	require.NoError(t, e.inviteSvc.InviteRecipients(context.Background(),
		group.ID, alice.ID, []string{"+15551230002"}, testNow))
	require.NoError(t, e.inviteSvc.InviteRecipients(context.Background(),
		group.ID, alice.ID, []string{"+15551230002"}, testNow))

	members, err := e.members.ListMembers(context.Background(), group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2, "adding twice keeps a single membership")

	active, err := e.members.IsActiveMember(context.Background(), group.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRedeem(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "+15551230001", "Alice")
	carol := e.addUser(t, "+15551230003", "Carol")
	group := e.addGroup(t, "Family", alice.ID)

	res, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230003"}, nil, testNow)
	require.NoError(t, err)
	code := res.Issued[0].Code

	// Codes match case-insensitively with surrounding whitespace ignored
	groupID, err := e.inviteSvc.Redeem(context.Background(),
		"  "+strings.ToLower(code)+" ", carol.ID, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, group.ID, groupID)

	active, err := e.members.IsActiveMember(context.Background(), group.ID, carol.ID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRedeemTwiceFails(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "+15551230001", "Alice")
	carol := e.addUser(t, "+15551230003", "Carol")
	dave := e.addUser(t, "+15551230004", "Dave")
	group := e.addGroup(t, "Family", alice.ID)

	res, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230003"}, nil, testNow)
	require.NoError(t, err)
	code := res.Issued[0].Code

	_, err = e.inviteSvc.Redeem(context.Background(), code, carol.ID, testNow)
	require.NoError(t, err)

	_, err = e.inviteSvc.Redeem(context.Background(), code, dave.ID, testNow.Add(time.Minute))
	assert.True(t, apperr.IsKind(err, apperr.NotFound), "a used code is gone for everyone")
}

func TestRedeemExpired(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "+15551230001", "Alice")
	carol := e.addUser(t, "+15551230003", "Carol")
	group := e.addGroup(t, "Family", alice.ID)

	res, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230003"}, nil, testNow)
	require.NoError(t, err)

	_, err = e.inviteSvc.Redeem(context.Background(), res.Issued[0].Code, carol.ID,
		testNow.Add(InviteTTL).Add(time.Minute))
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestRedeemByActiveMember(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "+15551230001", "Alice")
	bob := e.addUser(t, "+15551230002", "Bob")
	group := e.addGroup(t, "Family", alice.ID)
	e.members.setActive(group.ID, bob.ID, true)

	res, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230002"}, nil, testNow)
	require.NoError(t, err)

	_, err = e.inviteSvc.Redeem(context.Background(), res.Issued[0].Code, bob.ID, testNow)
	assert.True(t, apperr.IsKind(err, apperr.AlreadyMember))
}

func TestRedeemReactivatesFormerMember(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "+15551230001", "Alice")
	bob := e.addUser(t, "+15551230002", "Bob")
	group := e.addGroup(t, "Family", alice.ID)
	e.members.setActive(group.ID, bob.ID, true)
	require.NoError(t, e.groupSvc.Leave(context.Background(), group.ID, bob.ID, testNow))

	res, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230002"}, nil, testNow)
	require.NoError(t, err)

	groupID, err := e.inviteSvc.Redeem(context.Background(), res.Issued[0].Code, bob.ID, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, group.ID, groupID)

	active, err := e.members.IsActiveMember(context.Background(), group.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRedeemMalformedCode(t *testing.T) {
	e := newEnv()
	carol := e.addUser(t, "+15551230003", "Carol")

	for _, code := range []string{"", "ABC", "ABCDEFG"} {
		_, err := e.inviteSvc.Redeem(context.Background(), code, carol.ID, testNow)
		assert.True(t, apperr.IsKind(err, apperr.NotFound), "code %q", code)
	}
}

func TestListPending(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "+15551230001", "Alice")
	mallory := e.addUser(t, "+15551230005", "Mallory")
	carol := e.addUser(t, "+15551230003", "Carol")
	group := e.addGroup(t, "Family", alice.ID)

	res, err := e.inviteSvc.SendInvites(context.Background(), group.ID, alice.ID,
		[]string{"+15551230003", "+15551230004"}, nil, testNow)
	require.NoError(t, err)
	require.Len(t, res.Issued, 2)

	pending, err := e.inviteSvc.ListPending(context.Background(), group.ID, alice.ID, testNow)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = e.inviteSvc.ListPending(context.Background(), group.ID, mallory.ID, testNow)
	assert.True(t, apperr.IsKind(err, apperr.Forbidden))

	// Redeemed invites drop out of the pending list
	var carolCode string
	for _, inv := range res.Issued {
		if inv.PhoneNumber == "+15551230003" {
			carolCode = inv.Code
		}
	}
	_, err = e.inviteSvc.Redeem(context.Background(), carolCode, carol.ID, testNow.Add(time.Minute))
	require.NoError(t, err)

	pending, err = e.inviteSvc.ListPending(context.Background(), group.ID, alice.ID, testNow.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "+15551230004", pending[0].PhoneNumber)
}
