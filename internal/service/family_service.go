package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"familystars/internal/credentials"
	"familystars/internal/models"
	"familystars/internal/repository"
	"familystars/internal/security"
	"familystars/internal/validation"
)

var (
	ErrFamilyNotFound  = errors.New("family not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrNotFamilyMember = errors.New("profile is not a member of this family")
	ErrNotParent       = errors.New("only parents can do this")
	ErrNotAdmin        = errors.New("only the family admin can do this")
	ErrInvalidRole     = errors.New("invalid role")
)

// Child sessions are short-lived compared to parent sessions.
const childSessionDuration = 24 * time.Hour

const invitationValidity = 7 * 24 * time.Hour

// FamilyService handles family, profile and invitation business logic
type FamilyService struct {
	familyRepo     *repository.FamilyRepository
	profileRepo    *repository.ProfileRepository
	invitationRepo *repository.InvitationRepository
}

// NewFamilyService creates a new family service
func NewFamilyService(familyRepo *repository.FamilyRepository, profileRepo *repository.ProfileRepository, invitationRepo *repository.InvitationRepository) *FamilyService {
	return &FamilyService{
		familyRepo:     familyRepo,
		profileRepo:    profileRepo,
		invitationRepo: invitationRepo,
	}
}

// GetFamily retrieves a family by ID
func (s *FamilyService) GetFamily(familyID int64) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// UpdateFamily renames a family. Admin only.
func (s *FamilyService) UpdateFamily(actor *models.Profile, familyID int64, name string) error {
	if err := requireAdmin(actor, familyID); err != nil {
		return err
	}
	if err := validation.ValidateName(name); err != nil {
		return err
	}
	if err := s.familyRepo.UpdateFamily(familyID, name); err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}

// UpdateFamilyLogo sets a family's logo image. Admin only.
func (s *FamilyService) UpdateFamilyLogo(actor *models.Profile, familyID int64, logoURL string) error {
	if err := requireAdmin(actor, familyID); err != nil {
		return err
	}
	if err := s.familyRepo.UpdateFamilyLogo(familyID, logoURL); err != nil {
		return fmt.Errorf("failed to update family logo: %w", err)
	}
	return nil
}

// GetFamilyMembers retrieves all profiles in the actor's family with their
// current star balances
func (s *FamilyService) GetFamilyMembers(actor *models.Profile, familyID int64) ([]models.Profile, error) {
	if actor.FamilyID != familyID {
		return nil, ErrNotFamilyMember
	}
	profiles, err := s.profileRepo.GetFamilyProfiles(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}
	return profiles, nil
}

// GetProfile retrieves a profile, enforcing family isolation against the
// actor's family
func (s *FamilyService) GetProfile(actor *models.Profile, profileID int64) (*models.Profile, error) {
	profile, err := s.profileRepo.GetProfileByID(profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil || profile.FamilyID != actor.FamilyID {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// CreateManagedChild creates a child profile with no login credential. The
// generated username, one-time password and claim code are returned to the
// admin for handing to the child. Admin only.
func (s *FamilyService) CreateManagedChild(actor *models.Profile, fullName string) (*models.Profile, *models.ChildCredentials, error) {
	if err := requireAdmin(actor, actor.FamilyID); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidateName(fullName); err != nil {
		return nil, nil, err
	}

	username, err := s.uniqueUsername()
	if err != nil {
		return nil, nil, err
	}

	password, err := credentials.GenerateChildPassword()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate password: %w", err)
	}
	claimCode, err := credentials.GenerateClaimCode()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate claim code: %w", err)
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile, err := s.profileRepo.CreateManagedProfile(actor.FamilyID, fullName, username, passwordHash, claimCode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create child profile: %w", err)
	}

	return profile, &models.ChildCredentials{
		Username:  username,
		Password:  password,
		ClaimCode: claimCode,
	}, nil
}

func (s *FamilyService) uniqueUsername() (string, error) {
	// Retry on collision; the word lists make collisions rare
	for i := 0; i < 10; i++ {
		username, err := credentials.GenerateChildUsername()
		if err != nil {
			return "", fmt.Errorf("failed to generate username: %w", err)
		}
		existing, err := s.profileRepo.GetProfileByUsername(username)
		if err != nil {
			return "", fmt.Errorf("failed to check username uniqueness: %w", err)
		}
		if existing == nil {
			return username, nil
		}
	}
	return "", errors.New("failed to find an unused username")
}

// RegenerateChildPassword issues a new password for a managed child profile
// and returns the plaintext once. Admin only.
func (s *FamilyService) RegenerateChildPassword(actor *models.Profile, profileID int64) (string, error) {
	if err := requireAdmin(actor, actor.FamilyID); err != nil {
		return "", err
	}

	profile, err := s.GetProfile(actor, profileID)
	if err != nil {
		return "", err
	}
	if !profile.IsManaged() {
		return "", errors.New("profile has its own login credential")
	}

	password, err := credentials.GenerateChildPassword()
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.profileRepo.UpdateChildPassword(profileID, passwordHash); err != nil {
		return "", fmt.Errorf("failed to update child password: %w", err)
	}

	return password, nil
}

// UpdateProfile updates a profile's self-editable fields. A profile can
// edit itself; parents can also edit managed children in their family.
func (s *FamilyService) UpdateProfile(actor *models.Profile, profileID int64, displayName, phone, dateOfBirth string) error {
	profile, err := s.GetProfile(actor, profileID)
	if err != nil {
		return err
	}

	if actor.ID != profile.ID {
		if !actor.IsParent() || !profile.IsManaged() {
			return ErrNotParent
		}
	}

	dob, err := validation.ValidateDate("date_of_birth", dateOfBirth)
	if err != nil {
		return err
	}

	if err := s.profileRepo.UpdateProfile(profileID, displayName, phone, dob); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdateAvatar sets a profile's avatar image
func (s *FamilyService) UpdateAvatar(actor *models.Profile, profileID int64, avatarURL string) error {
	profile, err := s.GetProfile(actor, profileID)
	if err != nil {
		return err
	}
	if actor.ID != profile.ID && !actor.IsParent() {
		return ErrNotParent
	}
	if err := s.profileRepo.UpdateAvatar(profileID, avatarURL); err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return nil
}

// ChildLogin authenticates a managed child by username/password and creates
// a child session
func (s *FamilyService) ChildLogin(username, password string) (string, time.Time, *models.Profile, error) {
	profile, err := s.profileRepo.GetProfileByUsername(username)
	if err != nil {
		return "", time.Time{}, nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}

	hash, err := s.profileRepo.GetChildPasswordHash(profile.ID)
	if err != nil {
		return "", time.Time{}, nil, fmt.Errorf("failed to get password hash: %w", err)
	}
	if hash == "" || !security.CheckPassword(password, hash) {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}

	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().Add(childSessionDuration)
	if _, err := s.profileRepo.CreateChildSession(sessionID, profile.ID, expiresAt); err != nil {
		return "", time.Time{}, nil, fmt.Errorf("failed to create child session: %w", err)
	}

	return sessionID, expiresAt, profile, nil
}

// ValidateChildSession checks a child session and returns the profile
func (s *FamilyService) ValidateChildSession(sessionID string) (*models.Profile, error) {
	session, err := s.profileRepo.GetChildSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		_ = s.profileRepo.DeleteChildSession(sessionID)
		return nil, ErrSessionExpired
	}

	profile, err := s.profileRepo.GetProfileByID(session.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, ErrSessionNotFound
	}

	return profile, nil
}

// LogoutChild removes a child session
func (s *FamilyService) LogoutChild(sessionID string) error {
	if err := s.profileRepo.DeleteChildSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout child: %w", err)
	}
	return nil
}

// CreateInvitation creates an invitation code for joining the actor's
// family. Parents may invite; the invited role is parent or child, never
// admin. An email is sent when an address is given and email is configured.
func (s *FamilyService) CreateInvitation(ctx context.Context, emailService *EmailService, actor *models.Profile, actorUserID int64, role, email string) (*models.Invitation, error) {
	if !actor.IsParent() {
		return nil, ErrNotParent
	}
	if role != models.RoleParent && role != models.RoleChild {
		return nil, ErrInvalidRole
	}
	if email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, err
		}
	}

	code, err := generateSecureToken(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation code: %w", err)
	}

	expiresAt := time.Now().Add(invitationValidity)
	invitation, err := s.invitationRepo.CreateInvitation(code, actor.FamilyID, role, email, actorUserID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	if email != "" && emailService != nil && emailService.IsEnabled() {
		family, err := s.familyRepo.GetFamilyByID(actor.FamilyID)
		if err == nil && family != nil {
			if err := emailService.SendInvitationEmail(ctx, email, actor.FullName, family.Name, code); err != nil {
				// Invitation still works by sharing the code directly
				log.Printf("Warning: failed to send invitation email: %v", err)
			}
		}
	}

	return invitation, nil
}

// GetFamilyInvitations lists the actor's family invitations. Parents only.
func (s *FamilyService) GetFamilyInvitations(actor *models.Profile) ([]models.Invitation, error) {
	if !actor.IsParent() {
		return nil, ErrNotParent
	}
	invitations, err := s.invitationRepo.GetFamilyInvitations(actor.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitations: %w", err)
	}
	return invitations, nil
}

// GetInvitation retrieves an invitation by code for the pre-signup preview
func (s *FamilyService) GetInvitation(code string) (*models.Invitation, error) {
	invitation, err := s.invitationRepo.GetInvitationByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if invitation == nil {
		return nil, ErrInvalidInvitation
	}
	return invitation, nil
}

// RevokeInvitation deletes an unused invitation. Parents only.
func (s *FamilyService) RevokeInvitation(actor *models.Profile, invitationID int64) error {
	if !actor.IsParent() {
		return ErrNotParent
	}
	if err := s.invitationRepo.DeleteInvitation(invitationID, actor.FamilyID); err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}
	return nil
}

func requireAdmin(actor *models.Profile, familyID int64) error {
	if actor.FamilyID != familyID {
		return ErrNotFamilyMember
	}
	if actor.Role != models.RoleAdminParent {
		return ErrNotAdmin
	}
	return nil
}
