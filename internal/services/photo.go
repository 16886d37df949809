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

const (
	// PhotoTTL is how long a photo stays visible after submission
	PhotoTTL = 48 * time.Hour
	// ViewURLTTL is the lifetime of a signed viewing URL, independent of
	// the photo's own TTL
	ViewURLTTL = time.Hour

	maxPhotoBytes = 10 << 20
	blobTimeout   = 10 * time.Second
)

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/heic": ".heic",
}

// PhotoService handles photo submission and listing
type PhotoService struct {
	photos   PhotoStore
	members  MembershipStore
	ledger   *Ledger
	blob     BlobStore
	notifier Notifier
}

// NewPhotoService creates a new photo service
func NewPhotoService(
	photos PhotoStore,
	members MembershipStore,
	ledger *Ledger,
	blob BlobStore,
	notifier Notifier,
) *PhotoService {
	return &PhotoService{
		photos:   photos,
		members:  members,
		ledger:   ledger,
		blob:     blob,
		notifier: notifier,
	}
}

// SubmitResult is returned on a successful photo submission
type SubmitResult struct {
	PhotoID   string    `json:"photo_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PhotoView is a listed photo with a freshly minted signed URL
type PhotoView struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Submit stores a photo for the group. All-or-nothing: if the daily-send
// mark loses the race after the photo is stored, the photo row and blob
// are removed and the caller sees AlreadySent, never a half-committed
// state.
func (s *PhotoService) Submit(ctx context.Context, groupID, senderID string, data []byte, contentType string, now time.Time) (*SubmitResult, error) {
	active, err := s.members.IsActiveMember(ctx, groupID, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !active {
		return nil, apperr.New(apperr.Forbidden, "not a member of this group")
	}

	day := Day(now)
	sent, err := s.ledger.HasSentToday(ctx, senderID, groupID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to check daily send: %w", err)
	}
	if sent {
		return nil, apperr.New(apperr.AlreadySent, "already sent a photo to this group today")
	}

	if len(data) == 0 {
		return nil, apperr.New(apperr.InvalidInput, "photo is empty")
	}
	if len(data) > maxPhotoBytes {
		return nil, apperr.Newf(apperr.InvalidInput, "photo exceeds %d bytes", maxPhotoBytes)
	}
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return nil, apperr.Newf(apperr.InvalidInput, "unsupported content type %q", contentType)
	}

	photoID := uuid.New().String()
	storagePath := fmt.Sprintf("%s/%s/%s%s", groupID, senderID, photoID, ext)

	putCtx, cancel := context.WithTimeout(ctx, blobTimeout)
	defer cancel()
	if err := s.blob.Put(putCtx, storagePath, data, contentType); err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "failed to store photo", err)
	}

	photo := &models.Photo{
		ID:          photoID,
		GroupID:     groupID,
		SenderID:    senderID,
		StoragePath: storagePath,
		CreatedAt:   now,
		ExpiresAt:   now.Add(PhotoTTL),
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		s.compensate(photoID, storagePath, false)
		return nil, fmt.Errorf("failed to create photo record: %w", err)
	}

	if err := s.ledger.MarkSent(ctx, senderID, groupID, day); err != nil {
		s.compensate(photoID, storagePath, true)
		if apperr.IsKind(err, apperr.Conflict) {
			// Lost the race against a concurrent submission for the same day
			return nil, apperr.Wrap(apperr.AlreadySent, "already sent a photo to this group today", err)
		}
		return nil, fmt.Errorf("failed to mark daily send: %w", err)
	}

	s.notifier.PhotoCommitted(groupID, senderID, now)

	return &SubmitResult{PhotoID: photoID, ExpiresAt: photo.ExpiresAt}, nil
}

// ListActive returns the group's unexpired photos, newest first, each
// with a signed viewing URL.
func (s *PhotoService) ListActive(ctx context.Context, groupID, callerID string, now time.Time) ([]*PhotoView, error) {
	active, err := s.members.IsActiveMember(ctx, groupID, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !active {
		return nil, apperr.New(apperr.Forbidden, "not a member of this group")
	}

	photos, err := s.photos.ListActive(ctx, groupID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}

	views := make([]*PhotoView, 0, len(photos))
	for _, p := range photos {
		url, err := s.blob.SignedURL(ctx, p.StoragePath, ViewURLTTL)
		if err != nil {
			return nil, apperr.Wrap(apperr.Upstream, "failed to sign photo URL", err)
		}
		views = append(views, &PhotoView{
			ID:         p.ID,
			SenderID:   p.SenderID,
			SenderName: p.SenderName,
			URL:        url,
			CreatedAt:  p.CreatedAt,
			ExpiresAt:  p.ExpiresAt,
		})
	}
	return views, nil
}

// compensate removes partial submission state. It runs on a fresh context
// so a cancelled request still cleans up after itself.
func (s *PhotoService) compensate(photoID, storagePath string, deleteRow bool) {
	ctx, cancel := context.WithTimeout(context.Background(), blobTimeout)
	defer cancel()

	if deleteRow {
		if err := s.photos.Delete(ctx, photoID); err != nil {
			log.Error().Err(err).Str("photo_id", photoID).Msg("Failed to delete photo row during rollback")
		}
	}
	if err := s.blob.Delete(ctx, storagePath); err != nil {
		log.Error().Err(err).Str("path", storagePath).Msg("Failed to delete blob during rollback")
	}
}
