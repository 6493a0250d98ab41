package repository

import (
	"database/sql"
	"fmt"
	"time"

	"familystars/internal/database"
	"familystars/internal/models"
)

// RewardRepository handles database operations for the family reward
// catalog and redemptions
type RewardRepository struct {
	db *database.DB
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(db *database.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

const rewardColumns = `
	id, family_id, name, COALESCE(description, ''), price,
	COALESCE(icon_key, ''), created_at
`

func scanReward(row rowScanner) (*models.Reward, error) {
	reward := &models.Reward{}
	err := row.Scan(
		&reward.ID,
		&reward.FamilyID,
		&reward.Name,
		&reward.Description,
		&reward.Price,
		&reward.IconKey,
		&reward.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// CreateReward adds a reward to the family catalog
func (r *RewardRepository) CreateReward(familyID int64, name, description string, price int, iconKey string) (*models.Reward, error) {
	query := `
		INSERT INTO rewards (family_id, name, description, price, icon_key)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, familyID, name, description, price, iconKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	return &models.Reward{
		ID:          id,
		FamilyID:    familyID,
		Name:        name,
		Description: description,
		Price:       price,
		IconKey:     iconKey,
		CreatedAt:   time.Now(),
	}, nil
}

// GetRewardByID retrieves a reward by ID
func (r *RewardRepository) GetRewardByID(rewardID int64) (*models.Reward, error) {
	query := "SELECT " + rewardColumns + " FROM rewards WHERE id = ?"
	reward, err := scanReward(r.db.QueryRow(query, rewardID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	return reward, nil
}

// GetFamilyRewards retrieves a family's reward catalog
func (r *RewardRepository) GetFamilyRewards(familyID int64) ([]models.Reward, error) {
	query := "SELECT " + rewardColumns + " FROM rewards WHERE family_id = ? ORDER BY price ASC, created_at ASC"
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rewards: %w", err)
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, *reward)
	}

	return rewards, rows.Err()
}

// UpdateReward updates a reward's catalog entry. Past redemptions keep the
// price they were redeemed at.
func (r *RewardRepository) UpdateReward(rewardID int64, name, description string, price int, iconKey string) error {
	query := `
		UPDATE rewards
		SET name = ?, description = ?, price = ?, icon_key = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query, name, description, price, iconKey, rewardID)
	if err != nil {
		return fmt.Errorf("failed to update reward: %w", err)
	}
	return nil
}

// HasRedemptions reports whether a reward appears in redemption history
func (r *RewardRepository) HasRedemptions(rewardID int64) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM redemptions WHERE reward_id = ?"
	if err := r.db.QueryRow(query, rewardID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count redemptions: %w", err)
	}
	return count > 0, nil
}

// DeleteReward removes a reward from the catalog. Rewards with redemption
// history cannot be deleted; the service checks HasRedemptions first.
func (r *RewardRepository) DeleteReward(rewardID int64) error {
	query := "DELETE FROM rewards WHERE id = ?"
	_, err := r.db.Exec(query, rewardID)
	if err != nil {
		return fmt.Errorf("failed to delete reward: %w", err)
	}
	return nil
}

// Redeem debits the profile's balance and records the redemption in one
// transaction. The conditional UPDATE only succeeds when the balance covers
// the price, so two concurrent redemptions can never overspend. Returns
// ok=false when funds were insufficient.
func (r *RewardRepository) Redeem(reward *models.Reward, profileID int64) (ok bool, newBalance int, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	debit := `
		UPDATE profiles
		SET stars_balance = stars_balance - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stars_balance >= ?
	`
	result, err := tx.Exec(debit, reward.Price, profileID, reward.Price)
	if err != nil {
		return false, 0, fmt.Errorf("failed to debit stars: %w", err)
	}
	debited, err := oneRowAffected(result)
	if err != nil {
		return false, 0, err
	}
	if !debited {
		return false, 0, nil
	}

	insert := `
		INSERT INTO redemptions (family_id, reward_id, redeemed_by, price)
		VALUES (?, ?, ?, ?)
	`
	_, err = tx.Exec(insert, reward.FamilyID, reward.ID, profileID, reward.Price)
	if err != nil {
		return false, 0, fmt.Errorf("failed to record redemption: %w", err)
	}

	err = tx.QueryRow("SELECT stars_balance FROM profiles WHERE id = ?", profileID).Scan(&newBalance)
	if err != nil {
		return false, 0, fmt.Errorf("failed to read new balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("failed to commit redemption: %w", err)
	}

	return true, newBalance, nil
}

const redemptionQuery = `
	SELECT r.id, r.family_id, r.reward_id, r.redeemed_by, r.price, r.created_at,
		w.name, COALESCE(p.display_name, p.full_name)
	FROM redemptions r
	JOIN rewards w ON w.id = r.reward_id
	JOIN profiles p ON p.id = r.redeemed_by
`

// GetFamilyRedemptions retrieves a family's redemption history, newest first
func (r *RewardRepository) GetFamilyRedemptions(familyID int64) ([]models.Redemption, error) {
	query := redemptionQuery + " WHERE r.family_id = ? ORDER BY r.created_at DESC"
	return r.queryRedemptions(query, familyID)
}

// GetProfileRedemptions retrieves one profile's redemption history, newest
// first
func (r *RewardRepository) GetProfileRedemptions(profileID int64) ([]models.Redemption, error) {
	query := redemptionQuery + " WHERE r.redeemed_by = ? ORDER BY r.created_at DESC"
	return r.queryRedemptions(query, profileID)
}

func (r *RewardRepository) queryRedemptions(query string, args ...interface{}) ([]models.Redemption, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []models.Redemption
	for rows.Next() {
		var red models.Redemption
		err := rows.Scan(
			&red.ID,
			&red.FamilyID,
			&red.RewardID,
			&red.RedeemedBy,
			&red.Price,
			&red.CreatedAt,
			&red.RewardName,
			&red.RedeemerName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, red)
	}

	return redemptions, rows.Err()
}
