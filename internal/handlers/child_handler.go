package handlers

import (
	"net/http"

	"familystars/internal/security"
	"familystars/internal/service"
)

// ChildHandler handles managed child profiles and child logins
type ChildHandler struct {
	familyService *service.FamilyService
}

// NewChildHandler creates a new child handler
func NewChildHandler(familyService *service.FamilyService) *ChildHandler {
	return &ChildHandler{familyService: familyService}
}

// CreateChild creates a managed child profile. The response carries the
// generated username, one-time password and claim code; they are not
// retrievable later.
func (h *ChildHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	profile, creds, err := h.familyService.CreateManagedChild(auth.Profile, r.FormValue("full_name"))
	if err != nil {
		respondServiceError(w, err, "Failed to create child profile")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"profile":     profile,
		"credentials": creds,
	})
}

// RegeneratePassword issues a new password for a managed child profile
func (h *ChildHandler) RegeneratePassword(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	profileID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid profile ID", "", err)
		return
	}

	password, err := h.familyService.RegenerateChildPassword(auth.Profile, profileID)
	if err != nil {
		respondServiceError(w, err, "Failed to regenerate password")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"password": password})
}

// Login authenticates a child by username/password and sets the child
// session cookie
func (h *ChildHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	sessionID, expiresAt, profile, err := h.familyService.ChildLogin(
		r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		respondServiceError(w, err, "Child login failed")
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, ChildSessionCookieName, sessionID, expiresAt))
	respondJSON(w, http.StatusOK, map[string]interface{}{"profile": profile})
}

// Logout invalidates the child session
func (h *ChildHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(ChildSessionCookieName); err == nil {
		if err := h.familyService.LogoutChild(cookie.Value); err != nil {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Child logout failed", err)
			return
		}
		http.SetCookie(w, security.CreateDeleteCookie(r, ChildSessionCookieName))
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
