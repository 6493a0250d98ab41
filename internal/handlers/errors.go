package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"familystars/internal/service"
	"familystars/internal/validation"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("Error encoding response: %v", err)
		}
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, map[string]string{"error": userMsg})
}

// respondServiceError translates service-layer errors into HTTP responses.
// Unrecognized errors become a logged 500 with a generic message.
func respondServiceError(w http.ResponseWriter, err error, logMsg string) {
	var validationErr validation.ValidationError
	if errors.As(err, &validationErr) {
		respondWithError(w, http.StatusBadRequest, validationErr.Error(), "", nil)
		return
	}

	switch {
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrAssigneeNotChild):
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, err.Error(), "", nil)
	case errors.Is(err, service.ErrNotParent),
		errors.Is(err, service.ErrNotAdmin),
		errors.Is(err, service.ErrNotFamilyMember),
		errors.Is(err, service.ErrNotAssignee),
		errors.Is(err, service.ErrNotChild):
		respondWithError(w, http.StatusForbidden, err.Error(), "", nil)
	case errors.Is(err, service.ErrFamilyNotFound),
		errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrRewardNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), "", nil)
	case errors.Is(err, service.ErrTaskNotPending),
		errors.Is(err, service.ErrTaskNotWaiting),
		errors.Is(err, service.ErrTaskAlreadyDecided),
		errors.Is(err, service.ErrInsufficientStars),
		errors.Is(err, service.ErrRewardHasHistory),
		errors.Is(err, service.ErrInvalidInvitation),
		errors.Is(err, service.ErrInvalidClaimCode):
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}
