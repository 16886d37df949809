package handlers

import (
	"encoding/json"
	"net/http"

	"dayly-backend/internal/apperr"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// respondError sends a plain error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondAppError maps an error's kind to an HTTP status and sends it
func respondAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	respondJSON(w, statusForKind(kind), ErrorResponse{Error: err.Error(), Kind: kind.String()})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.AlreadySent, apperr.AlreadyMember, apperr.Conflict:
		return http.StatusConflict
	case apperr.LimitExceeded:
		return http.StatusUnprocessableEntity
	case apperr.Upstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
