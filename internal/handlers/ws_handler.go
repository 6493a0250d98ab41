package handlers

import (
	"net/http"
	"strconv"

	"familystars/internal/realtime"
	"familystars/internal/service"
)

// WSHandler upgrades balance subscription requests to websockets
type WSHandler struct {
	familyService *service.FamilyService
	hub           *realtime.Hub
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(familyService *service.FamilyService, hub *realtime.Hub) *WSHandler {
	return &WSHandler{familyService: familyService, hub: hub}
}

// SubscribeBalance streams balance updates. Callers follow their own
// profile by default; parents may follow another family member via the
// profile_id query parameter.
func (h *WSHandler) SubscribeBalance(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	profileID := auth.Profile.ID
	if raw := r.URL.Query().Get("profile_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid profile ID", "", err)
			return
		}
		if id != auth.Profile.ID {
			if !auth.Profile.IsParent() {
				respondWithError(w, http.StatusForbidden, "Only parents can follow other profiles", "", nil)
				return
			}
			if _, err := h.familyService.GetProfile(auth.Profile, id); err != nil {
				respondServiceError(w, err, "Failed to get profile")
				return
			}
			profileID = id
		}
	}

	h.hub.Subscribe(w, r, profileID)
}
