package repository

import (
	"database/sql"
	"fmt"
	"time"

	"familystars/internal/database"
	"familystars/internal/models"
)

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily creates the signup's user credential, a new family and the
// creator's admin_parent profile in one transaction, so a failure partway
// through never leaves a credential without a profile.
func (r *FamilyRepository) CreateFamily(familyName, email, passwordHash, name string) (*models.User, *models.Family, *models.Profile, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := insertUser(tx, email, passwordHash, name)
	if err != nil {
		return nil, nil, nil, err
	}

	query := "INSERT INTO families (name, created_by) VALUES (?, ?)"
	familyID, err := tx.ExecReturningID(query, familyName, user.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create family: %w", err)
	}

	query = `
		INSERT INTO profiles (family_id, user_id, full_name, role, email)
		VALUES (?, ?, ?, ?, ?)
	`
	profileID, err := tx.ExecReturningID(query, familyID, user.ID, user.Name, models.RoleAdminParent, user.Email)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create admin profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	family := &models.Family{
		ID:        familyID,
		Name:      familyName,
		CreatedBy: user.ID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	profile := &models.Profile{
		ID:       profileID,
		FamilyID: familyID,
		UserID:   &user.ID,
		FullName: user.Name,
		Role:     models.RoleAdminParent,
		Email:    user.Email,
	}

	return user, family, profile, nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(familyID int64) (*models.Family, error) {
	query := "SELECT id, name, COALESCE(logo_url, ''), COALESCE(created_by, 0), created_at, updated_at FROM families WHERE id = ?"
	family := &models.Family{}
	err := r.db.QueryRow(query, familyID).Scan(
		&family.ID,
		&family.Name,
		&family.LogoURL,
		&family.CreatedBy,
		&family.CreatedAt,
		&family.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	return family, nil
}

// UpdateFamily updates a family's name
func (r *FamilyRepository) UpdateFamily(familyID int64, name string) error {
	query := "UPDATE families SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err := r.db.Exec(query, name, familyID)
	if err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}

// UpdateFamilyLogo sets the family's logo URL
func (r *FamilyRepository) UpdateFamilyLogo(familyID int64, logoURL string) error {
	query := "UPDATE families SET logo_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err := r.db.Exec(query, logoURL, familyID)
	if err != nil {
		return fmt.Errorf("failed to update family logo: %w", err)
	}
	return nil
}
