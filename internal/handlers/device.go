package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"dayly-backend/internal/middleware"
	"dayly-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// DeviceHandler handles device registration HTTP requests
type DeviceHandler struct {
	deviceService *services.DeviceService
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(deviceService *services.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

// DeviceRequest is the body for device register/unregister
type DeviceRequest struct {
	DeviceToken string `json:"device_token"`
	Platform    string `json:"platform,omitempty"`
}

// Register handles POST /api/v1/devices
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.deviceService.Register(ctx, userID, req.DeviceToken, req.Platform, time.Now()); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to register device")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Unregister handles DELETE /api/v1/devices
func (h *DeviceHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.deviceService.Unregister(ctx, userID, req.DeviceToken); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to unregister device")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// List handles GET /api/v1/devices
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	devices, err := h.deviceService.List(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list devices")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"devices": devices})
}
