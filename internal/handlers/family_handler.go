package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"familystars/internal/service"
	"familystars/internal/storage"
)

// FamilyHandler handles family, member and invitation HTTP requests
type FamilyHandler struct {
	familyService *service.FamilyService
	emailService  *service.EmailService
	uploads       storage.Storage
	uploadMaxSize int64
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, emailService *service.EmailService, uploads storage.Storage, uploadMaxSize int64) *FamilyHandler {
	return &FamilyHandler{
		familyService: familyService,
		emailService:  emailService,
		uploads:       uploads,
		uploadMaxSize: uploadMaxSize,
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// GetFamily returns the authenticated profile's family
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	family, err := h.familyService.GetFamily(auth.Profile.FamilyID)
	if err != nil {
		respondServiceError(w, err, "Failed to get family")
		return
	}

	respondJSON(w, http.StatusOK, family)
}

// UpdateFamily renames the family. Admin only (enforced by the service).
func (h *FamilyHandler) UpdateFamily(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	if err := h.familyService.UpdateFamily(auth.Profile, auth.Profile.FamilyID, r.FormValue("name")); err != nil {
		respondServiceError(w, err, "Failed to update family")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// UploadFamilyLogo stores a family logo image and records its URL
func (h *FamilyHandler) UploadFamilyLogo(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	url, err := saveUpload(r, h.uploads, h.uploadMaxSize, "logo",
		fmt.Sprintf("logos/family-%d", auth.Profile.FamilyID))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	if err := h.familyService.UpdateFamilyLogo(auth.Profile, auth.Profile.FamilyID, url); err != nil {
		respondServiceError(w, err, "Failed to update family logo")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"logo_url": url})
}

// GetMembers returns all family members with their star balances
func (h *FamilyHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	members, err := h.familyService.GetFamilyMembers(auth.Profile, auth.Profile.FamilyID)
	if err != nil {
		respondServiceError(w, err, "Failed to get family members")
		return
	}

	respondJSON(w, http.StatusOK, members)
}

// GetProfile returns one family member
func (h *FamilyHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	profileID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid profile ID", "", err)
		return
	}

	profile, err := h.familyService.GetProfile(auth.Profile, profileID)
	if err != nil {
		respondServiceError(w, err, "Failed to get profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile updates a member's display name, phone and date of birth
func (h *FamilyHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	profileID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid profile ID", "", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	err = h.familyService.UpdateProfile(auth.Profile, profileID,
		r.FormValue("display_name"), r.FormValue("phone"), r.FormValue("date_of_birth"))
	if err != nil {
		respondServiceError(w, err, "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// UploadAvatar stores a profile avatar image and records its URL
func (h *FamilyHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	profileID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid profile ID", "", err)
		return
	}

	url, err := saveUpload(r, h.uploads, h.uploadMaxSize, "avatar",
		fmt.Sprintf("avatars/profile-%d", profileID))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	if err := h.familyService.UpdateAvatar(auth.Profile, profileID, url); err != nil {
		respondServiceError(w, err, "Failed to update avatar")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"avatar_url": url})
}

// CreateInvitation creates a family invitation and optionally emails it
func (h *FamilyHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	var userID int64
	if auth.User != nil {
		userID = auth.User.ID
	}

	invitation, err := h.familyService.CreateInvitation(r.Context(), h.emailService,
		auth.Profile, userID, r.FormValue("role"), r.FormValue("email"))
	if err != nil {
		respondServiceError(w, err, "Failed to create invitation")
		return
	}

	respondJSON(w, http.StatusCreated, invitation)
}

// GetInvitations lists the family's invitations
func (h *FamilyHandler) GetInvitations(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	invitations, err := h.familyService.GetFamilyInvitations(auth.Profile)
	if err != nil {
		respondServiceError(w, err, "Failed to get invitations")
		return
	}

	respondJSON(w, http.StatusOK, invitations)
}

// PreviewInvitation shows who is inviting to what family, for the signup
// page. No auth required; knowing the code is the capability.
func (h *FamilyHandler) PreviewInvitation(w http.ResponseWriter, r *http.Request) {
	invitation, err := h.familyService.GetInvitation(r.URL.Query().Get("code"))
	if err != nil {
		respondServiceError(w, err, "Failed to get invitation")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"family_name":  invitation.FamilyName,
		"inviter_name": invitation.InviterName,
		"role":         invitation.Role,
		"valid":        invitation.IsValid(),
		"expires_at":   invitation.ExpiresAt.Format(time.RFC3339),
	})
}

// RevokeInvitation deletes an unused invitation
func (h *FamilyHandler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	invitationID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invitation ID", "", err)
		return
	}

	if err := h.familyService.RevokeInvitation(auth.Profile, invitationID); err != nil {
		respondServiceError(w, err, "Failed to revoke invitation")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// saveUpload reads a multipart image upload and stores it, returning the
// public URL. The key gets the extension matching the detected content
// type.
func saveUpload(r *http.Request, uploads storage.Storage, maxSize int64, field, keyPrefix string) (string, error) {
	if uploads == nil {
		return "", fmt.Errorf("uploads are not configured")
	}

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return "", fmt.Errorf("upload too large or malformed")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("missing %s file", field)
	}
	defer file.Close()

	if header.Size > maxSize {
		return "", fmt.Errorf("upload exceeds %d bytes", maxSize)
	}

	contentType := header.Header.Get("Content-Type")
	ext, err := storage.ExtensionFor(contentType)
	if err != nil {
		return "", err
	}

	return uploads.Save(r.Context(), keyPrefix+ext, contentType, file)
}
