package handlers

import (
	"io"
	"net/http"
	"time"

	"dayly-backend/internal/middleware"
	"dayly-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// maxUploadBytes bounds the request body a little above the photo limit
// so the service, not the HTTP layer, owns the size rule.
const maxUploadBytes = (10 << 20) + (512 << 10)

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	photoService *services.PhotoService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService) *PhotoHandler {
	return &PhotoHandler{photoService: photoService}
}

// SubmitPhoto handles POST /api/v1/groups/{group_id}/photos
func (h *PhotoHandler) SubmitPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	groupID := chi.URLParam(r, "group_id")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, "photo file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "Failed to read photo", http.StatusBadRequest)
		return
	}
	contentType := header.Header.Get("Content-Type")

	result, err := h.photoService.Submit(ctx, groupID, userID, data, contentType, time.Now())
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("group_id", groupID).
			Msg("Failed to submit photo")
		respondAppError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("group_id", groupID).
		Str("photo_id", result.PhotoID).
		Msg("Photo submitted")

	respondJSON(w, http.StatusCreated, result)
}

// ListPhotos handles GET /api/v1/groups/{group_id}/photos
func (h *PhotoHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	groupID := chi.URLParam(r, "group_id")

	photos, err := h.photoService.ListActive(ctx, groupID, userID, time.Now())
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("group_id", groupID).
			Msg("Failed to list photos")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"photos": photos})
}
