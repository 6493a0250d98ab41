package repository

import (
	"database/sql"
	"fmt"
	"time"

	"familystars/internal/database"
	"familystars/internal/models"
)

// ProfileRepository handles database operations for family member profiles
// and child sessions
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `
	id, family_id, user_id, full_name, COALESCE(display_name, ''), role,
	stars_balance, COALESCE(avatar_url, ''), date_of_birth, COALESCE(phone, ''),
	COALESCE(email, ''), COALESCE(username, ''), created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	profile := &models.Profile{}
	var userID sql.NullInt64
	var dateOfBirth sql.NullTime

	err := row.Scan(
		&profile.ID,
		&profile.FamilyID,
		&userID,
		&profile.FullName,
		&profile.DisplayName,
		&profile.Role,
		&profile.StarsBalance,
		&profile.AvatarURL,
		&dateOfBirth,
		&profile.Phone,
		&profile.Email,
		&profile.Username,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		profile.UserID = &userID.Int64
	}
	if dateOfBirth.Valid {
		profile.DateOfBirth = &dateOfBirth.Time
	}

	return profile, nil
}

// CreateManagedProfile creates a child profile with no backing user. The
// child logs in with the generated username/password and may later claim
// the profile with the claim code.
func (r *ProfileRepository) CreateManagedProfile(familyID int64, fullName, username, passwordHash, claimCode string) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (family_id, full_name, role, username, password_hash, claim_code)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, familyID, fullName, models.RoleChild, username, passwordHash, claimCode)
	if err != nil {
		return nil, fmt.Errorf("failed to create managed profile: %w", err)
	}

	return &models.Profile{
		ID:        id,
		FamilyID:  familyID,
		FullName:  fullName,
		Role:      models.RoleChild,
		Username:  username,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}, nil
}

// GetProfileByID retrieves a profile by ID
func (r *ProfileRepository) GetProfileByID(profileID int64) (*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE id = ?"
	profile, err := scanProfile(r.db.QueryRow(query, profileID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// GetProfileByUserID retrieves the profile backed by a user credential
func (r *ProfileRepository) GetProfileByUserID(userID int64) (*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE user_id = ?"
	profile, err := scanProfile(r.db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// GetProfileByUsername retrieves a managed child profile by its username
func (r *ProfileRepository) GetProfileByUsername(username string) (*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE username = ?"
	profile, err := scanProfile(r.db.QueryRow(query, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// GetProfileByClaimCode retrieves an unclaimed managed profile by claim code
func (r *ProfileRepository) GetProfileByClaimCode(claimCode string) (*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE claim_code = ? AND user_id IS NULL"
	profile, err := scanProfile(r.db.QueryRow(query, claimCode))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// GetChildPasswordHash returns the stored password hash for a managed child
// profile
func (r *ProfileRepository) GetChildPasswordHash(profileID int64) (string, error) {
	var hash sql.NullString
	query := "SELECT password_hash FROM profiles WHERE id = ?"
	if err := r.db.QueryRow(query, profileID).Scan(&hash); err != nil {
		return "", fmt.Errorf("failed to get child password hash: %w", err)
	}
	return hash.String, nil
}

// GetFamilyProfiles retrieves all profiles in a family
func (r *ProfileRepository) GetFamilyProfiles(familyID int64) ([]models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE family_id = ? ORDER BY created_at ASC"
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *profile)
	}

	return profiles, rows.Err()
}

// UpdateProfile updates the self-editable profile fields
func (r *ProfileRepository) UpdateProfile(profileID int64, displayName, phone string, dateOfBirth *time.Time) error {
	query := `
		UPDATE profiles
		SET display_name = ?, phone = ?, date_of_birth = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query, displayName, phone, dateOfBirth, profileID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdateAvatar sets a profile's avatar URL
func (r *ProfileRepository) UpdateAvatar(profileID int64, avatarURL string) error {
	query := "UPDATE profiles SET avatar_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err := r.db.Exec(query, avatarURL, profileID)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return nil
}

// UpdateChildPassword replaces a managed child profile's password hash
func (r *ProfileRepository) UpdateChildPassword(profileID int64, passwordHash string) error {
	query := "UPDATE profiles SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err := r.db.Exec(query, passwordHash, profileID)
	if err != nil {
		return fmt.Errorf("failed to update child password: %w", err)
	}
	return nil
}

// ClaimProfile creates the signup's user credential and links it to the
// unclaimed managed profile in one transaction, clearing the claim code.
// Returns false if the code was already consumed; the rollback then
// discards the credential too.
func (r *ProfileRepository) ClaimProfile(claimCode, email, passwordHash, name string) (*models.User, bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := insertUser(tx, email, passwordHash, name)
	if err != nil {
		return nil, false, err
	}

	query := `
		UPDATE profiles
		SET user_id = ?, email = ?, claim_code = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE claim_code = ? AND user_id IS NULL
	`
	result, err := tx.Exec(query, user.ID, email, claimCode)
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to check claim result: %w", err)
	}
	if rows != 1 {
		return nil, false, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, true, nil
}

// CreateChildSession creates a new session for a child profile
func (r *ProfileRepository) CreateChildSession(sessionID string, profileID int64, expiresAt time.Time) (*models.ChildSession, error) {
	query := "INSERT INTO child_sessions (id, profile_id, expires_at) VALUES (?, ?, ?)"
	_, err := r.db.Exec(query, sessionID, profileID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create child session: %w", err)
	}

	return &models.ChildSession{
		ID:        sessionID,
		ProfileID: profileID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// GetChildSession retrieves a child session by ID
func (r *ProfileRepository) GetChildSession(sessionID string) (*models.ChildSession, error) {
	query := "SELECT id, profile_id, expires_at, created_at FROM child_sessions WHERE id = ?"
	session := &models.ChildSession{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.ProfileID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child session: %w", err)
	}

	return session, nil
}

// DeleteChildSession removes a child session
func (r *ProfileRepository) DeleteChildSession(sessionID string) error {
	query := "DELETE FROM child_sessions WHERE id = ?"
	_, err := r.db.Exec(query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete child session: %w", err)
	}
	return nil
}

// DeleteExpiredChildSessions removes all expired child sessions
func (r *ProfileRepository) DeleteExpiredChildSessions() error {
	query := "DELETE FROM child_sessions WHERE expires_at < CURRENT_TIMESTAMP"
	_, err := r.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to delete expired child sessions: %w", err)
	}
	return nil
}
