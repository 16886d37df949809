package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"dayly-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AuthHandler handles phone verification HTTP requests
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RequestVerificationRequest is the body for POST /auth/request-verification
type RequestVerificationRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// RequestVerification handles POST /api/v1/auth/request-verification
func (h *AuthHandler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	var req RequestVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	expiresIn, err := h.authService.RequestVerification(r.Context(), req.PhoneNumber, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to request verification")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":    "Verification code sent",
		"expires_in": int(expiresIn.Seconds()),
	})
}

// VerifyRequest is the body for POST /auth/verify
type VerifyRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
	DisplayName string `json:"display_name,omitempty"`
}

// Verify handles POST /api/v1/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, user, err := h.authService.Verify(r.Context(), req.PhoneNumber, req.Code, req.DisplayName, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to verify code")
		respondAppError(w, err)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User verified")

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"user":         user,
	})
}
