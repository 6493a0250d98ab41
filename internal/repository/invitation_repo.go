package repository

import (
	"database/sql"
	"fmt"
	"time"

	"familystars/internal/database"
	"familystars/internal/models"
)

// InvitationRepository handles database operations for family invitations
type InvitationRepository struct {
	db *database.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *database.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// CreateInvitation creates an invitation code for joining a family
func (r *InvitationRepository) CreateInvitation(code string, familyID int64, role, email string, invitedBy int64, expiresAt time.Time) (*models.Invitation, error) {
	query := `
		INSERT INTO invitations (code, family_id, role, email, invited_by, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, code, familyID, role, email, invitedBy, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return &models.Invitation{
		ID:        id,
		Code:      code,
		FamilyID:  familyID,
		Role:      role,
		Email:     email,
		InvitedBy: invitedBy,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}, nil
}

// GetInvitationByCode retrieves an invitation with inviter and family names
func (r *InvitationRepository) GetInvitationByCode(code string) (*models.Invitation, error) {
	query := `
		SELECT i.id, i.code, i.family_id, i.role, COALESCE(i.email, ''),
			i.invited_by, i.created_at, i.used_at, i.used_by, i.expires_at,
			u.name, f.name
		FROM invitations i
		JOIN users u ON u.id = i.invited_by
		JOIN families f ON f.id = i.family_id
		WHERE i.code = ?
	`
	inv := &models.Invitation{}
	var usedAt sql.NullTime
	var usedBy sql.NullInt64

	err := r.db.QueryRow(query, code).Scan(
		&inv.ID,
		&inv.Code,
		&inv.FamilyID,
		&inv.Role,
		&inv.Email,
		&inv.InvitedBy,
		&inv.CreatedAt,
		&usedAt,
		&usedBy,
		&inv.ExpiresAt,
		&inv.InviterName,
		&inv.FamilyName,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	if usedAt.Valid {
		inv.UsedAt = &usedAt.Time
	}
	if usedBy.Valid {
		inv.UsedBy = &usedBy.Int64
	}

	return inv, nil
}

// GetFamilyInvitations lists a family's invitations, newest first
func (r *InvitationRepository) GetFamilyInvitations(familyID int64) ([]models.Invitation, error) {
	query := `
		SELECT i.id, i.code, i.family_id, i.role, COALESCE(i.email, ''),
			i.invited_by, i.created_at, i.used_at, i.used_by, i.expires_at,
			u.name, f.name
		FROM invitations i
		JOIN users u ON u.id = i.invited_by
		JOIN families f ON f.id = i.family_id
		WHERE i.family_id = ?
		ORDER BY i.created_at DESC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		var inv models.Invitation
		var usedAt sql.NullTime
		var usedBy sql.NullInt64
		err := rows.Scan(
			&inv.ID,
			&inv.Code,
			&inv.FamilyID,
			&inv.Role,
			&inv.Email,
			&inv.InvitedBy,
			&inv.CreatedAt,
			&usedAt,
			&usedBy,
			&inv.ExpiresAt,
			&inv.InviterName,
			&inv.FamilyName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		if usedAt.Valid {
			inv.UsedAt = &usedAt.Time
		}
		if usedBy.Valid {
			inv.UsedBy = &usedBy.Int64
		}
		invitations = append(invitations, inv)
	}

	return invitations, rows.Err()
}

// ConsumeInvitation creates the signup's user credential, consumes the
// invitation and creates the joining profile in one transaction. The guard
// on used_at makes consumption at-most-once under concurrent signups;
// losing the race returns false and writes nothing, so no orphaned
// credential is left behind.
func (r *InvitationRepository) ConsumeInvitation(invitation *models.Invitation, email, passwordHash, fullName string) (*models.User, *models.Profile, bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := insertUser(tx, email, passwordHash, fullName)
	if err != nil {
		return nil, nil, false, err
	}

	query := `
		UPDATE invitations
		SET used_at = CURRENT_TIMESTAMP, used_by = ?
		WHERE id = ? AND used_at IS NULL
	`
	result, err := tx.Exec(query, user.ID, invitation.ID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to mark invitation used: %w", err)
	}
	used, err := oneRowAffected(result)
	if err != nil {
		return nil, nil, false, err
	}
	if !used {
		// Lost the race for the code; rolling back discards the user too
		return nil, nil, false, nil
	}

	query = `
		INSERT INTO profiles (family_id, user_id, full_name, role, email)
		VALUES (?, ?, ?, ?, ?)
	`
	profileID, err := tx.ExecReturningID(query, invitation.FamilyID, user.ID, fullName, invitation.Role, email)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to create profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	profile := &models.Profile{
		ID:        profileID,
		FamilyID:  invitation.FamilyID,
		UserID:    &user.ID,
		FullName:  fullName,
		Role:      invitation.Role,
		Email:     email,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	return user, profile, true, nil
}

// DeleteInvitation revokes an unused invitation
func (r *InvitationRepository) DeleteInvitation(invitationID, familyID int64) error {
	query := "DELETE FROM invitations WHERE id = ? AND family_id = ? AND used_at IS NULL"
	_, err := r.db.Exec(query, invitationID, familyID)
	if err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}
	return nil
}
