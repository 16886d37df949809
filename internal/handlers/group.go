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

// GroupHandler handles group-related HTTP requests
type GroupHandler struct {
	groupService *services.GroupService
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// CreateGroupRequest is the body for POST /groups
type CreateGroupRequest struct {
	Name         string   `json:"name"`
	InvitePhones []string `json:"invite_phones,omitempty"`
}

// CreateGroup handles POST /api/v1/groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	group, err := h.groupService.Create(ctx, userID, req.Name, req.InvitePhones, time.Now())
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create group")
		respondAppError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("group_id", group.ID).
		Msg("Group created")

	respondJSON(w, http.StatusCreated, group)
}

// ListGroups handles GET /api/v1/groups
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	summaries, err := h.groupService.List(ctx, userID, time.Now())
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list groups")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"groups": summaries})
}

// GetGroup handles GET /api/v1/groups/{group_id}
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	groupID := chi.URLParam(r, "group_id")

	summary, err := h.groupService.Get(ctx, groupID, userID, time.Now())
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("group_id", groupID).Msg("Failed to get group")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// RenameGroupRequest is the body for PATCH /groups/{group_id}
type RenameGroupRequest struct {
	Name string `json:"name"`
}

// RenameGroup handles PATCH /api/v1/groups/{group_id}
func (h *GroupHandler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	groupID := chi.URLParam(r, "group_id")

	var req RenameGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.groupService.Rename(ctx, groupID, userID, req.Name); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("group_id", groupID).Msg("Failed to rename group")
		respondAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LeaveGroup handles POST /api/v1/groups/{group_id}/leave
func (h *GroupHandler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	groupID := chi.URLParam(r, "group_id")

	if err := h.groupService.Leave(ctx, groupID, userID, time.Now()); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("group_id", groupID).Msg("Failed to leave group")
		respondAppError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("group_id", groupID).
		Msg("User left group")

	w.WriteHeader(http.StatusNoContent)
}
