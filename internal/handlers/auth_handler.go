package handlers

import (
	"log"
	"net/http"

	"familystars/internal/models"
	"familystars/internal/security"
	"familystars/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	emailService         *service.EmailService
	csrf                 *security.CSRFGenerator
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, emailService *service.EmailService, csrf *security.CSRFGenerator, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		emailService:         emailService,
		csrf:                 csrf,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
	}
}

type sessionResponse struct {
	User      *models.User    `json:"user"`
	Profile   *models.Profile `json:"profile"`
	CSRFToken string          `json:"csrf_token"`
}

// Register handles signup. Exactly one of three paths applies: an
// invitation code joins an existing family, a claim code attaches the
// credential to a managed child profile, otherwise a new family is created
// with the signup as its admin.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")
	name := r.FormValue("name")
	invitationCode := r.FormValue("invitation_code")
	claimCode := r.FormValue("claim_code")

	var (
		user    *models.User
		profile *models.Profile
		err     error
	)
	switch {
	case invitationCode != "":
		user, profile, err = h.authService.RegisterWithInvitation(email, password, name, invitationCode)
	case claimCode != "":
		user, profile, err = h.authService.RegisterWithClaim(email, password, name, claimCode)
	default:
		user, profile, err = h.authService.Register(email, password, name, r.FormValue("family_name"))
	}
	if err != nil {
		respondServiceError(w, err, "Registration failed")
		return
	}

	if h.emailService != nil && h.emailService.IsEnabled() {
		if err := h.emailService.SendWelcomeEmail(r.Context(), user.Email, user.Name); err != nil {
			log.Printf("Failed to send welcome email to %s: %v", user.Email, err)
		}
	}

	session, _, err := h.authService.Login(email, password)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Post-signup login failed", err)
		return
	}

	h.writeSession(w, r, session.ID, session, user, profile, http.StatusCreated)
}

// Login handles login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	session, user, err := h.authService.Login(r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		respondServiceError(w, err, "Login failed")
		return
	}

	_, profile, err := h.authService.ValidateSession(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Session validation failed", err)
		return
	}

	h.writeSession(w, r, session.ID, session, user, profile, http.StatusOK)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, sessionID string, session *models.Session, user *models.User, profile *models.Profile, status int) {
	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, sessionID, session.ExpiresAt))

	token, err := h.csrf.GenerateToken(sessionID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "CSRF token generation failed", err)
		return
	}

	respondJSON(w, status, sessionResponse{User: user, Profile: profile, CSRFToken: token})
}

// Logout invalidates the current session, parent or child
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.authService.Logout(cookie.Value); err != nil {
			log.Printf("Failed to delete session: %v", err)
		}
		http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me returns the authenticated identity and a fresh CSRF token
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	token, err := h.csrf.GenerateToken(auth.SessionID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "CSRF token generation failed", err)
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{User: auth.User, Profile: auth.Profile, CSRFToken: token})
}

// ForgotPassword requests a password reset email. Always returns 200 so
// account existence is not revealed.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), h.emailService, r.FormValue("email")); err != nil {
		log.Printf("Password reset request failed: %v", err)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "If that email has an account, a reset link is on its way",
	})
}

// ValidateResetToken reports whether a reset token is still usable
func (h *AuthHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	valid, err := h.authService.ValidatePasswordResetToken(r.URL.Query().Get("token"))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Token validation failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// ResetPassword sets a new password using a reset token
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	if err := h.authService.ResetPassword(r.FormValue("token"), r.FormValue("password")); err != nil {
		respondServiceError(w, err, "Password reset failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "password_reset"})
}
