package services

import (
	"context"
	"testing"
	"time"

	"dayly-backend/internal/models"

	"github.com/stretchr/testify/require"
)

// testNow is a fixed mid-day UTC instant so day boundaries in tests are
// deterministic.
var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type env struct {
	users      *fakeUserStore
	members    *fakeMembershipStore
	groups     *fakeGroupStore
	daily      *fakeDailyStore
	photos     *fakePhotoStore
	invites    *fakeInviteStore
	devices    *fakeDeviceStore
	otps       *fakeOTPStore
	blob       *fakeBlobStore
	smsSender  *fakeSMSSender
	pushSender *fakePushSender
	notifier   *fakeNotifier

	ledger    *Ledger
	groupSvc  *GroupService
	photoSvc  *PhotoService
	inviteSvc *InviteService
	authSvc   *AuthService
	deviceSvc *DeviceService
}

func newEnv() *env {
	e := &env{
		users:      newFakeUserStore(),
		members:    newFakeMembershipStore(),
		daily:      newFakeDailyStore(),
		photos:     newFakePhotoStore(),
		devices:    nil,
		otps:       newFakeOTPStore(),
		blob:       newFakeBlobStore(),
		smsSender:  &fakeSMSSender{},
		pushSender: &fakePushSender{},
		notifier:   &fakeNotifier{},
	}
	e.groups = newFakeGroupStore(e.members)
	e.invites = newFakeInviteStore(e.members)
	e.devices = newFakeDeviceStore(e.members)

	e.ledger = NewLedger(e.daily)
	e.inviteSvc = NewInviteService(e.invites, e.members, e.users, e.smsSender)
	e.groupSvc = NewGroupService(e.groups, e.members, e.ledger, e.photos, e.inviteSvc)
	e.photoSvc = NewPhotoService(e.photos, e.members, e.ledger, e.blob, e.notifier)
	e.authSvc = NewAuthService(e.users, e.otps, e.smsSender, "test-secret")
	e.deviceSvc = NewDeviceService(e.devices)
	return e
}

func (e *env) addUser(t *testing.T, phone, name string) *models.User {
	t.Helper()
	u, err := e.users.UpsertByPhone(context.Background(), phone, name, testNow)
	require.NoError(t, err)
	e.members.names[u.ID] = name
	e.photos.names[u.ID] = name
	return u
}

func (e *env) addGroup(t *testing.T, name, ownerID string) *models.Group {
	t.Helper()
	g, err := e.groupSvc.Create(context.Background(), ownerID, name, nil, testNow)
	require.NoError(t, err)
	return g
}
