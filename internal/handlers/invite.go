package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"dayly-backend/internal/middleware"
	"dayly-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// InviteHandler handles invite-related HTTP requests
type InviteHandler struct {
	inviteService *services.InviteService
}

// NewInviteHandler creates a new invite handler
func NewInviteHandler(inviteService *services.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

// SendInvitesRequest is the body for POST /groups/{group_id}/invites
type SendInvitesRequest struct {
	PhoneNumbers    []string `json:"phone_numbers,omitempty"`
	ExistingUserIDs []string `json:"existing_user_ids,omitempty"`
}

// SendInvites handles POST /api/v1/groups/{group_id}/invites
func (h *InviteHandler) SendInvites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	groupID := chi.URLParam(r, "group_id")

	var req SendInvitesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.PhoneNumbers) == 0 && len(req.ExistingUserIDs) == 0 {
		respondError(w, "phone_numbers or existing_user_ids is required", http.StatusBadRequest)
		return
	}

	result, err := h.inviteService.SendInvites(ctx, groupID, userID, req.PhoneNumbers, req.ExistingUserIDs, time.Now())
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("group_id", groupID).
			Msg("Failed to send invites")
		respondAppError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("group_id", groupID).
		Int("issued", len(result.Issued)).
		Int("added", len(result.AddedMembers)).
		Msg("Invites sent")

	respondJSON(w, http.StatusOK, result)
}

// ListPendingInvites handles GET /api/v1/groups/{group_id}/invites
func (h *InviteHandler) ListPendingInvites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	groupID := chi.URLParam(r, "group_id")

	invites, err := h.inviteService.ListPending(ctx, groupID, userID, time.Now())
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("group_id", groupID).
			Msg("Failed to list invites")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"invites": invites})
}

// RedeemInviteRequest is the body for POST /invites/redeem
type RedeemInviteRequest struct {
	Code string `json:"code"`
}

// RedeemInvite handles POST /api/v1/invites/redeem
func (h *InviteHandler) RedeemInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req RedeemInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		respondError(w, "code is required", http.StatusBadRequest)
		return
	}

	groupID, err := h.inviteService.Redeem(ctx, req.Code, userID, time.Now())
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Msg("Failed to redeem invite")
		respondAppError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("group_id", groupID).
		Msg("Invite redeemed")

	respondJSON(w, http.StatusOK, map[string]any{"group_id": groupID})
}
