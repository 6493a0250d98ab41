package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"familystars/internal/models"
	"familystars/internal/repository"
	"familystars/internal/security"
	"familystars/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidInvitation  = errors.New("invitation code is invalid or expired")
	ErrInvalidClaimCode   = errors.New("claim code is invalid")
)

// AuthService handles authentication business logic for parent accounts:
// registration, invitation joins, profile claims, sessions and password
// resets.
type AuthService struct {
	userRepo        *repository.UserRepository
	familyRepo      *repository.FamilyRepository
	profileRepo     *repository.ProfileRepository
	invitationRepo  *repository.InvitationRepository
	sessionDuration time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, familyRepo *repository.FamilyRepository, profileRepo *repository.ProfileRepository, invitationRepo *repository.InvitationRepository, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		familyRepo:      familyRepo,
		profileRepo:     profileRepo,
		invitationRepo:  invitationRepo,
		sessionDuration: sessionDuration,
	}
}

// Register creates a new user account and a new family, with the user as
// the family's admin parent.
func (s *AuthService) Register(email, password, name, familyName string) (*models.User, *models.Profile, error) {
	passwordHash, err := s.checkSignup(email, password, name)
	if err != nil {
		return nil, nil, err
	}

	if familyName == "" {
		familyName = name + "'s Family"
	}
	user, _, profile, err := s.familyRepo.CreateFamily(familyName, email, passwordHash, name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create family: %w", err)
	}

	return user, profile, nil
}

// RegisterWithInvitation creates a new user account and joins the inviting
// family with the role fixed on the invitation.
func (s *AuthService) RegisterWithInvitation(email, password, name, invitationCode string) (*models.User, *models.Profile, error) {
	invitation, err := s.invitationRepo.GetInvitationByCode(invitationCode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check invitation: %w", err)
	}
	if invitation == nil || !invitation.IsValid() {
		return nil, nil, ErrInvalidInvitation
	}

	passwordHash, err := s.checkSignup(email, password, name)
	if err != nil {
		return nil, nil, err
	}

	user, profile, used, err := s.invitationRepo.ConsumeInvitation(invitation, email, passwordHash, name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to consume invitation: %w", err)
	}
	if !used {
		return nil, nil, ErrInvalidInvitation
	}

	return user, profile, nil
}

// RegisterWithClaim creates a new user account and attaches it to the
// managed child profile identified by the claim code. The child keeps its
// star balance and task history; only the credential changes.
func (s *AuthService) RegisterWithClaim(email, password, name, claimCode string) (*models.User, *models.Profile, error) {
	profile, err := s.profileRepo.GetProfileByClaimCode(claimCode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check claim code: %w", err)
	}
	if profile == nil {
		return nil, nil, ErrInvalidClaimCode
	}

	passwordHash, err := s.checkSignup(email, password, name)
	if err != nil {
		return nil, nil, err
	}

	user, claimed, err := s.profileRepo.ClaimProfile(claimCode, email, passwordHash, name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to claim profile: %w", err)
	}
	if !claimed {
		return nil, nil, ErrInvalidClaimCode
	}

	profile, err = s.profileRepo.GetProfileByID(profile.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload profile: %w", err)
	}

	return user, profile, nil
}

// checkSignup validates signup fields and returns the password hash. The
// user row itself is inserted by the repository, in the same transaction
// that creates or links the profile.
func (s *AuthService) checkSignup(email, password, name string) (string, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return "", err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return "", err
	}
	if err := validation.ValidateName(name); err != nil {
		return "", err
	}

	existingUser, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return "", ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return passwordHash, nil
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(email, password string) (*models.Session, *models.User, error) {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().Add(s.sessionDuration)

	session, err := s.userRepo.CreateSession(sessionID, user.ID, expiresAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, user, nil
}

// ValidateSession checks if a session is valid and returns the associated
// user and their profile
func (s *AuthService) ValidateSession(sessionID string) (*models.User, *models.Profile, error) {
	session, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.userRepo.DeleteSession(sessionID)
		return nil, nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrSessionNotFound
	}

	profile, err := s.profileRepo.GetProfileByUserID(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		// A credential with no profile cannot act anywhere; refuse the
		// session rather than hand out a half-formed identity
		return nil, nil, ErrSessionNotFound
	}

	return user, profile, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	if err := s.userRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired parent and child sessions from the
// database
func (s *AuthService) CleanupExpiredSessions() error {
	if err := s.userRepo.DeleteExpiredSessions(); err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	if err := s.profileRepo.DeleteExpiredChildSessions(); err != nil {
		return fmt.Errorf("failed to cleanup child sessions: %w", err)
	}
	return nil
}

// OAuthLogin authenticates or creates a user using an OAuth provider.
// New users join via an invitation code when present, otherwise a fresh
// family is created for them.
func (s *AuthService) OAuthLogin(provider, subject, email, name, invitationCode string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, errors.New("missing oauth provider information")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetUserByOAuth(provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		existingUser, err := s.userRepo.GetUserByEmail(email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existingUser != nil {
			if existingUser.OAuthProvider != "" && existingUser.OAuthProvider != provider {
				return nil, nil, ErrEmailTaken
			}
			if err := s.userRepo.LinkOAuthProvider(existingUser.ID, provider, subject); err != nil {
				return nil, nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
			user = existingUser
		} else {
			if name == "" {
				name = strings.Split(email, "@")[0]
			}
			randomPasswordHash, err := security.HashPassword(security.GenerateSessionID())
			if err != nil {
				return nil, nil, fmt.Errorf("failed to generate oauth password hash: %w", err)
			}

			if invitationCode != "" {
				invitation, err := s.invitationRepo.GetInvitationByCode(invitationCode)
				if err != nil {
					return nil, nil, fmt.Errorf("failed to check invitation: %w", err)
				}
				if invitation == nil || !invitation.IsValid() {
					return nil, nil, ErrInvalidInvitation
				}
				newUser, _, used, err := s.invitationRepo.ConsumeInvitation(invitation, email, randomPasswordHash, name)
				if err != nil {
					return nil, nil, fmt.Errorf("failed to consume invitation: %w", err)
				}
				if !used {
					return nil, nil, ErrInvalidInvitation
				}
				user = newUser
			} else {
				newUser, _, _, err := s.familyRepo.CreateFamily(name+"'s Family", email, randomPasswordHash, name)
				if err != nil {
					return nil, nil, fmt.Errorf("failed to create family: %w", err)
				}
				user = newUser
			}

			if err := s.userRepo.LinkOAuthProvider(user.ID, provider, subject); err != nil {
				return nil, nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
		}
	}

	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().Add(s.sessionDuration)
	session, err := s.userRepo.CreateSession(sessionID, user.ID, expiresAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, user, nil
}

// RequestPasswordReset creates a password reset token and sends an email
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailService *EmailService, email string) error {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	// Don't reveal whether the account exists
	if user == nil {
		return nil
	}

	if user.OAuthProvider != "" && user.PasswordHash == "" {
		return nil
	}

	token, err := generateSecureToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	_ = s.userRepo.DeleteUserPasswordResetTokens(user.ID)

	expiresAt := time.Now().Add(1 * time.Hour)
	if err := s.userRepo.CreatePasswordResetToken(token, user.ID, expiresAt); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	if emailService != nil && emailService.IsEnabled() {
		if err := emailService.SendPasswordResetEmail(ctx, user.Email, user.Name, token); err != nil {
			return fmt.Errorf("failed to send reset email: %w", err)
		}
	}

	return nil
}

// ValidatePasswordResetToken checks if a reset token is valid
func (s *AuthService) ValidatePasswordResetToken(token string) (bool, error) {
	resetToken, err := s.userRepo.GetPasswordResetToken(token)
	if err != nil {
		return false, fmt.Errorf("failed to get reset token: %w", err)
	}

	if resetToken == nil || resetToken.Used || resetToken.IsExpired() {
		return false, nil
	}

	return true, nil
}

// ResetPassword resets a user's password using a valid token
func (s *AuthService) ResetPassword(token, newPassword string) error {
	resetToken, err := s.userRepo.GetPasswordResetToken(token)
	if err != nil {
		return fmt.Errorf("failed to get reset token: %w", err)
	}

	if resetToken == nil {
		return errors.New("invalid or expired reset token")
	}
	if resetToken.Used {
		return errors.New("this reset link has already been used")
	}
	if resetToken.IsExpired() {
		return errors.New("this reset link has expired")
	}

	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(resetToken.UserID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.userRepo.MarkPasswordResetTokenAsUsed(token); err != nil {
		return fmt.Errorf("failed to mark token as used: %w", err)
	}

	return nil
}

// CleanupExpiredPasswordResetTokens removes expired reset tokens
func (s *AuthService) CleanupExpiredPasswordResetTokens() error {
	if err := s.userRepo.DeleteExpiredPasswordResetTokens(); err != nil {
		return fmt.Errorf("failed to cleanup reset tokens: %w", err)
	}
	return nil
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
