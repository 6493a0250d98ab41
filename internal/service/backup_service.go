package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"familystars/internal/database"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version     string             `json:"version"`
	ExportedAt  time.Time          `json:"exported_at"`
	Users       []UserBackup       `json:"users"`
	Families    []FamilyBackup     `json:"families"`
	Profiles    []ProfileBackup    `json:"profiles"`
	Tasks       []TaskBackup       `json:"tasks"`
	Rewards     []RewardBackup     `json:"rewards"`
	Redemptions []RedemptionBackup `json:"redemptions"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FamilyBackup represents a family record for backup
type FamilyBackup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	LogoURL   string    `json:"logo_url"`
	CreatedBy *int64    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileBackup represents a profile record for backup
type ProfileBackup struct {
	ID           int64      `json:"id"`
	FamilyID     int64      `json:"family_id"`
	UserID       *int64     `json:"user_id"`
	FullName     string     `json:"full_name"`
	DisplayName  string     `json:"display_name"`
	Role         string     `json:"role"`
	StarsBalance int        `json:"stars_balance"`
	AvatarURL    string     `json:"avatar_url"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"password_hash"`
	ClaimCode    string     `json:"claim_code"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TaskBackup represents a task record for backup
type TaskBackup struct {
	ID          int64      `json:"id"`
	FamilyID    int64      `json:"family_id"`
	CreatedBy   int64      `json:"created_by"`
	AssignedTo  int64      `json:"assigned_to"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StarsValue  int        `json:"stars_value"`
	DueDate     *time.Time `json:"due_date"`
	IconKey     string     `json:"icon_key"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
	ApprovedAt  *time.Time `json:"approved_at"`
	ApprovedBy  *int64     `json:"approved_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RewardBackup represents a reward record for backup
type RewardBackup struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int       `json:"price"`
	IconKey     string    `json:"icon_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// RedemptionBackup represents a redemption record for backup
type RedemptionBackup struct {
	ID         int64     `json:"id"`
	FamilyID   int64     `json:"family_id"`
	RewardID   int64     `json:"reward_id"`
	RedeemedBy int64     `json:"redeemed_by"`
	Price      int       `json:"price"`
	CreatedAt  time.Time `json:"created_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	log.Println("Starting database export...")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter exports the database to an io.Writer (useful for HTTP responses)
func (s *BackupService) ExportToWriter(w io.Writer) error {
	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now(),
	}

	if err := s.exportUsers(backup); err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportFamilies(backup); err != nil {
		return fmt.Errorf("failed to export families: %w", err)
	}
	if err := s.exportProfiles(backup); err != nil {
		return fmt.Errorf("failed to export profiles: %w", err)
	}
	if err := s.exportTasks(backup); err != nil {
		return fmt.Errorf("failed to export tasks: %w", err)
	}
	if err := s.exportRewards(backup); err != nil {
		return fmt.Errorf("failed to export rewards: %w", err)
	}
	if err := s.exportRedemptions(backup); err != nil {
		return fmt.Errorf("failed to export redemptions: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d users, %d families, %d profiles, %d tasks, %d rewards, %d redemptions",
		len(backup.Users), len(backup.Families), len(backup.Profiles),
		len(backup.Tasks), len(backup.Rewards), len(backup.Redemptions))
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	// Import in dependency order
	if err := s.importUsers(backup.Users); err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}
	if err := s.importFamilies(backup.Families); err != nil {
		return fmt.Errorf("failed to import families: %w", err)
	}
	if err := s.importProfiles(backup.Profiles); err != nil {
		return fmt.Errorf("failed to import profiles: %w", err)
	}
	if err := s.importTasks(backup.Tasks); err != nil {
		return fmt.Errorf("failed to import tasks: %w", err)
	}
	if err := s.importRewards(backup.Rewards); err != nil {
		return fmt.Errorf("failed to import rewards: %w", err)
	}
	if err := s.importRedemptions(backup.Redemptions); err != nil {
		return fmt.Errorf("failed to import redemptions: %w", err)
	}

	log.Println("Database import completed successfully")
	return nil
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	query := "SELECT id, email, password_hash, name, COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), created_at, updated_at FROM users ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.OAuthProvider, &u.OAuthSubject, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportFamilies(backup *BackupData) error {
	query := "SELECT id, name, COALESCE(logo_url, ''), created_by, created_at, updated_at FROM families ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FamilyBackup
		var createdBy sql.NullInt64
		if err := rows.Scan(&f.ID, &f.Name, &f.LogoURL, &createdBy, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return err
		}
		if createdBy.Valid {
			f.CreatedBy = &createdBy.Int64
		}
		backup.Families = append(backup.Families, f)
	}
	return rows.Err()
}

func (s *BackupService) exportProfiles(backup *BackupData) error {
	query := `SELECT id, family_id, user_id, full_name, COALESCE(display_name, ''), role,
		stars_balance, COALESCE(avatar_url, ''), date_of_birth, COALESCE(phone, ''),
		COALESCE(email, ''), COALESCE(username, ''), COALESCE(password_hash, ''),
		COALESCE(claim_code, ''), created_at, updated_at FROM profiles ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p ProfileBackup
		var userID sql.NullInt64
		var dob sql.NullTime
		if err := rows.Scan(&p.ID, &p.FamilyID, &userID, &p.FullName, &p.DisplayName, &p.Role,
			&p.StarsBalance, &p.AvatarURL, &dob, &p.Phone, &p.Email, &p.Username,
			&p.PasswordHash, &p.ClaimCode, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		if userID.Valid {
			p.UserID = &userID.Int64
		}
		if dob.Valid {
			p.DateOfBirth = &dob.Time
		}
		backup.Profiles = append(backup.Profiles, p)
	}
	return rows.Err()
}

func (s *BackupService) exportTasks(backup *BackupData) error {
	query := `SELECT id, family_id, created_by, assigned_to, title, COALESCE(description, ''),
		stars_value, due_date, COALESCE(icon_key, ''), status, completed_at, approved_at,
		approved_by, created_at, updated_at FROM tasks ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var t TaskBackup
		var dueDate, completedAt, approvedAt sql.NullTime
		var approvedBy sql.NullInt64
		if err := rows.Scan(&t.ID, &t.FamilyID, &t.CreatedBy, &t.AssignedTo, &t.Title, &t.Description,
			&t.StarsValue, &dueDate, &t.IconKey, &t.Status, &completedAt, &approvedAt,
			&approvedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return err
		}
		if dueDate.Valid {
			t.DueDate = &dueDate.Time
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.Time
		}
		if approvedAt.Valid {
			t.ApprovedAt = &approvedAt.Time
		}
		if approvedBy.Valid {
			t.ApprovedBy = &approvedBy.Int64
		}
		backup.Tasks = append(backup.Tasks, t)
	}
	return rows.Err()
}

func (s *BackupService) exportRewards(backup *BackupData) error {
	query := "SELECT id, family_id, name, COALESCE(description, ''), price, COALESCE(icon_key, ''), created_at FROM rewards ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r RewardBackup
		if err := rows.Scan(&r.ID, &r.FamilyID, &r.Name, &r.Description, &r.Price, &r.IconKey, &r.CreatedAt); err != nil {
			return err
		}
		backup.Rewards = append(backup.Rewards, r)
	}
	return rows.Err()
}

func (s *BackupService) exportRedemptions(backup *BackupData) error {
	query := "SELECT id, family_id, reward_id, redeemed_by, price, created_at FROM redemptions ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r RedemptionBackup
		if err := rows.Scan(&r.ID, &r.FamilyID, &r.RewardID, &r.RedeemedBy, &r.Price, &r.CreatedAt); err != nil {
			return err
		}
		backup.Redemptions = append(backup.Redemptions, r)
	}
	return rows.Err()
}

func (s *BackupService) importUsers(users []UserBackup) error {
	log.Printf("Importing %d users...", len(users))
	for _, u := range users {
		query := "INSERT INTO users (id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, u.ID, u.Email, u.PasswordHash, u.Name, nullIfEmpty(u.OAuthProvider), nullIfEmpty(u.OAuthSubject), u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importFamilies(families []FamilyBackup) error {
	log.Printf("Importing %d families...", len(families))
	for _, f := range families {
		query := "INSERT INTO families (id, name, logo_url, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, f.ID, f.Name, nullIfEmpty(f.LogoURL), f.CreatedBy, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import family %d: %w", f.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importProfiles(profiles []ProfileBackup) error {
	log.Printf("Importing %d profiles...", len(profiles))
	for _, p := range profiles {
		query := `INSERT INTO profiles (id, family_id, user_id, full_name, display_name, role,
			stars_balance, avatar_url, date_of_birth, phone, email, username, password_hash,
			claim_code, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := s.db.Exec(query, p.ID, p.FamilyID, p.UserID, p.FullName, nullIfEmpty(p.DisplayName),
			p.Role, p.StarsBalance, nullIfEmpty(p.AvatarURL), p.DateOfBirth, nullIfEmpty(p.Phone),
			nullIfEmpty(p.Email), nullIfEmpty(p.Username), nullIfEmpty(p.PasswordHash),
			nullIfEmpty(p.ClaimCode), p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import profile %d: %w", p.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importTasks(tasks []TaskBackup) error {
	log.Printf("Importing %d tasks...", len(tasks))
	for _, t := range tasks {
		query := `INSERT INTO tasks (id, family_id, created_by, assigned_to, title, description,
			stars_value, due_date, icon_key, status, completed_at, approved_at, approved_by,
			created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := s.db.Exec(query, t.ID, t.FamilyID, t.CreatedBy, t.AssignedTo, t.Title,
			nullIfEmpty(t.Description), t.StarsValue, t.DueDate, nullIfEmpty(t.IconKey), t.Status,
			t.CompletedAt, t.ApprovedAt, t.ApprovedBy, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import task %d: %w", t.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importRewards(rewards []RewardBackup) error {
	log.Printf("Importing %d rewards...", len(rewards))
	for _, r := range rewards {
		query := "INSERT INTO rewards (id, family_id, name, description, price, icon_key, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, r.ID, r.FamilyID, r.Name, nullIfEmpty(r.Description), r.Price, nullIfEmpty(r.IconKey), r.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import reward %d: %w", r.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importRedemptions(redemptions []RedemptionBackup) error {
	log.Printf("Importing %d redemptions...", len(redemptions))
	for _, r := range redemptions {
		query := "INSERT INTO redemptions (id, family_id, reward_id, redeemed_by, price, created_at) VALUES (?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, r.ID, r.FamilyID, r.RewardID, r.RedeemedBy, r.Price, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import redemption %d: %w", r.ID, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
