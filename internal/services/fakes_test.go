package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"dayly-backend/internal/apperr"
	"dayly-backend/internal/models"
	"dayly-backend/internal/push"

	"github.com/google/uuid"
)

func memberKey(groupID, userID string) string {
	return groupID + "|" + userID
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) add(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeUserStore) UpsertByPhone(_ context.Context, phone, displayName string, now time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.PhoneNumber == phone {
			u.LastActive = now
			if displayName != "" {
				u.DisplayName = displayName
			}
			return u, nil
		}
	}
	u := &models.User{
		ID:          uuid.New().String(),
		PhoneNumber: phone,
		DisplayName: displayName,
		CreatedAt:   now,
		LastActive:  now,
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	return u, nil
}

func (f *fakeUserStore) FindByPhones(_ context.Context, phones []string) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, phone := range phones {
		for _, u := range f.users {
			if u.PhoneNumber == phone {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

type fakeMembershipStore struct {
	mu     sync.Mutex
	rows   map[string]*models.Membership
	groups map[string]*models.Group
	names  map[string]string
}

func newFakeMembershipStore() *fakeMembershipStore {
	return &fakeMembershipStore{
		rows:   make(map[string]*models.Membership),
		groups: make(map[string]*models.Group),
		names:  make(map[string]string),
	}
}

func (f *fakeMembershipStore) setActive(groupID, userID string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[memberKey(groupID, userID)] = &models.Membership{
		GroupID: groupID, UserID: userID, IsActive: active,
	}
}

func (f *fakeMembershipStore) ActiveCount(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, m := range f.rows {
		if m.UserID == userID && m.IsActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeMembershipStore) IsActiveMember(_ context.Context, groupID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[memberKey(groupID, userID)]
	return ok && m.IsActive, nil
}

func (f *fakeMembershipStore) ListMembers(_ context.Context, groupID string) ([]models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var members []models.Member
	for _, m := range f.rows {
		if m.GroupID == groupID && m.IsActive {
			members = append(members, models.Member{UserID: m.UserID, DisplayName: f.names[m.UserID]})
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

func (f *fakeMembershipStore) ListGroupsForUser(_ context.Context, userID string) ([]*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var groups []*models.Group
	for _, m := range f.rows {
		if m.UserID == userID && m.IsActive {
			if g, ok := f.groups[m.GroupID]; ok {
				groups = append(groups, g)
			}
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

func (f *fakeMembershipStore) Deactivate(_ context.Context, groupID, userID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[memberKey(groupID, userID)]
	if !ok || !m.IsActive {
		return apperr.New(apperr.NotFound, "no active membership")
	}
	m.IsActive = false
	return nil
}

func (f *fakeMembershipStore) UpsertActive(_ context.Context, groupID, userID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.rows[memberKey(groupID, userID)]; ok {
		m.IsActive = true
		return nil
	}
	f.rows[memberKey(groupID, userID)] = &models.Membership{
		GroupID: groupID, UserID: userID, IsActive: true,
	}
	return nil
}

type fakeGroupStore struct {
	mu      sync.Mutex
	members *fakeMembershipStore
}

func newFakeGroupStore(members *fakeMembershipStore) *fakeGroupStore {
	return &fakeGroupStore{members: members}
}

func (f *fakeGroupStore) CreateWithOwner(ctx context.Context, group *models.Group) error {
	f.members.mu.Lock()
	f.members.groups[group.ID] = group
	f.members.mu.Unlock()
	return f.members.UpsertActive(ctx, group.ID, group.CreatedBy, group.CreatedAt)
}

func (f *fakeGroupStore) GetByID(_ context.Context, id string) (*models.Group, error) {
	f.members.mu.Lock()
	defer f.members.mu.Unlock()
	g, ok := f.members.groups[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "group not found")
	}
	return g, nil
}

func (f *fakeGroupStore) Rename(_ context.Context, id, name string) error {
	f.members.mu.Lock()
	defer f.members.mu.Unlock()
	g, ok := f.members.groups[id]
	if !ok {
		return apperr.New(apperr.NotFound, "group not found")
	}
	g.Name = name
	return nil
}

type fakeDailyStore struct {
	mu   sync.Mutex
	rows map[string]bool
}

func newFakeDailyStore() *fakeDailyStore {
	return &fakeDailyStore{rows: make(map[string]bool)}
}

func dailyKey(userID, groupID string, day time.Time) string {
	return userID + "|" + groupID + "|" + day.Format("2006-01-02")
}

func (f *fakeDailyStore) HasSent(_ context.Context, userID, groupID string, day time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[dailyKey(userID, groupID, day)], nil
}

func (f *fakeDailyStore) Mark(_ context.Context, userID, groupID string, day time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := dailyKey(userID, groupID, day)
	if f.rows[key] {
		return apperr.New(apperr.Conflict, "already sent today")
	}
	f.rows[key] = true
	return nil
}

type fakePhotoStore struct {
	mu     sync.Mutex
	photos map[string]*models.PhotoWithSender
	names  map[string]string
}

func newFakePhotoStore() *fakePhotoStore {
	return &fakePhotoStore{
		photos: make(map[string]*models.PhotoWithSender),
		names:  make(map[string]string),
	}
}

func (f *fakePhotoStore) Create(_ context.Context, photo *models.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos[photo.ID] = &models.PhotoWithSender{Photo: *photo, SenderName: f.names[photo.SenderID]}
	return nil
}

func (f *fakePhotoStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.photos, id)
	return nil
}

func (f *fakePhotoStore) ListActive(_ context.Context, groupID string, now time.Time) ([]*models.PhotoWithSender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PhotoWithSender
	for _, p := range f.photos {
		if p.GroupID == groupID && p.ExpiresAt.After(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakePhotoStore) LatestActive(ctx context.Context, groupID string, now time.Time) (*models.PhotoWithSender, error) {
	photos, err := f.ListActive(ctx, groupID, now)
	if err != nil || len(photos) == 0 {
		return nil, err
	}
	return photos[0], nil
}

func (f *fakePhotoStore) CountOnDate(_ context.Context, groupID string, day time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, p := range f.photos {
		if p.GroupID == groupID && Day(p.CreatedAt).Equal(day) {
			count++
		}
	}
	return count, nil
}

type fakeInviteStore struct {
	mu      sync.Mutex
	invites map[string]*models.Invite
	members *fakeMembershipStore
}

func newFakeInviteStore(members *fakeMembershipStore) *fakeInviteStore {
	return &fakeInviteStore{
		invites: make(map[string]*models.Invite),
		members: members,
	}
}

func (f *fakeInviteStore) Create(ctx context.Context, invite *models.Invite) error {
	inUse, _ := f.CodeInUse(ctx, invite.Code)
	if inUse {
		return apperr.New(apperr.Conflict, "invite code already in use")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *invite
	f.invites[invite.ID] = &cp
	return nil
}

func (f *fakeInviteStore) CodeInUse(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invites {
		if inv.UsedAt == nil && strings.EqualFold(inv.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInviteStore) PendingExists(_ context.Context, groupID, phone string, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invites {
		if inv.GroupID == groupID && inv.PhoneNumber == phone && inv.UsedAt == nil && inv.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInviteStore) ListPending(_ context.Context, groupID string, now time.Time) ([]*models.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Invite
	for _, inv := range f.invites {
		if inv.GroupID == groupID && inv.UsedAt == nil && inv.ExpiresAt.After(now) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeInviteStore) RedeemForUser(_ context.Context, code, userID string, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var match *models.Invite
	for _, inv := range f.invites {
		if strings.EqualFold(inv.Code, code) && inv.UsedAt == nil && inv.ExpiresAt.After(now) {
			match = inv
			break
		}
	}
	if match == nil {
		return "", apperr.New(apperr.NotFound, "invite not found")
	}

	f.members.mu.Lock()
	m, ok := f.members.rows[memberKey(match.GroupID, userID)]
	if ok && m.IsActive {
		f.members.mu.Unlock()
		return "", apperr.New(apperr.AlreadyMember, "already a member of this group")
	}
	if ok {
		m.IsActive = true
	} else {
		f.members.rows[memberKey(match.GroupID, userID)] = &models.Membership{
			GroupID: match.GroupID, UserID: userID, IsActive: true,
		}
	}
	f.members.mu.Unlock()

	match.UsedAt = &now
	match.UsedBy = &userID
	return match.GroupID, nil
}

type fakeDeviceStore struct {
	mu      sync.Mutex
	devices []*models.Device
	members *fakeMembershipStore
}

func newFakeDeviceStore(members *fakeMembershipStore) *fakeDeviceStore {
	return &fakeDeviceStore{members: members}
}

func (f *fakeDeviceStore) Upsert(_ context.Context, device *models.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if d.UserID == device.UserID && d.DeviceToken == device.DeviceToken {
			d.Platform = device.Platform
			d.UpdatedAt = device.UpdatedAt
			return nil
		}
	}
	cp := *device
	f.devices = append(f.devices, &cp)
	return nil
}

func (f *fakeDeviceStore) DeleteByToken(_ context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.devices[:0]
	for _, d := range f.devices {
		if !(d.UserID == userID && d.DeviceToken == token) {
			out = append(out, d)
		}
	}
	f.devices = out
	return nil
}

func (f *fakeDeviceStore) ListByUser(_ context.Context, userID string) ([]*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Device
	for _, d := range f.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDeviceStore) ListForGroupExcluding(ctx context.Context, groupID, excludeUserID string) ([]*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Device
	for _, d := range f.devices {
		if d.UserID == excludeUserID {
			continue
		}
		if active, _ := f.members.IsActiveMember(ctx, groupID, d.UserID); active {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeOTPStore struct {
	mu   sync.Mutex
	otps map[string]*models.OTPCode
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{otps: make(map[string]*models.OTPCode)}
}

func (f *fakeOTPStore) Create(_ context.Context, otp *models.OTPCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *otp
	f.otps[otp.ID] = &cp
	return nil
}

func (f *fakeOTPStore) FindValid(_ context.Context, phone, code string, now time.Time) (*models.OTPCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, otp := range f.otps {
		if otp.PhoneNumber == phone && otp.Code == code && otp.UsedAt == nil && otp.ExpiresAt.After(now) {
			return otp, nil
		}
	}
	return nil, nil
}

func (f *fakeOTPStore) MarkUsed(_ context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if otp, ok := f.otps[id]; ok {
		otp.UsedAt = &now
	}
	return nil
}

func (f *fakeOTPStore) InvalidatePending(_ context.Context, phone string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, otp := range f.otps {
		if otp.PhoneNumber == phone && otp.UsedAt == nil && otp.ExpiresAt.After(now) {
			t := now
			otp.UsedAt = &t
		}
	}
	return nil
}

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(_ context.Context, path string, data []byte, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = data
	return nil
}

func (f *fakeBlobStore) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, path)
	return nil
}

func (f *fakeBlobStore) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + path, nil
}

func (f *fakeBlobStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type notifyCall struct {
	groupID  string
	senderID string
	at       time.Time
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (f *fakeNotifier) PhotoCommitted(groupID, senderID string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifyCall{groupID: groupID, senderID: senderID, at: at})
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type sentSMS struct {
	phone string
	text  string
}

type fakeSMSSender struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (f *fakeSMSSender) Send(_ context.Context, phone, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentSMS{phone: phone, text: text})
	return "SM" + uuid.New().String(), nil
}

func (f *fakeSMSSender) messages() []sentSMS {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentSMS(nil), f.sent...)
}

type sentPush struct {
	token    string
	platform string
	n        push.Notification
}

type fakePushSender struct {
	mu         sync.Mutex
	sent       []sentPush
	failTokens map[string]bool
}

func (f *fakePushSender) Send(_ context.Context, token, platform string, n push.Notification) error {
	if f.failTokens[token] {
		return apperr.New(apperr.Upstream, "push rejected")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentPush{token: token, platform: platform, n: n})
	return nil
}

func (f *fakePushSender) deliveries() []sentPush {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentPush(nil), f.sent...)
}
