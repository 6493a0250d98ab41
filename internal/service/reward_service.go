package service

import (
	"errors"
	"fmt"

	"familystars/internal/models"
	"familystars/internal/realtime"
	"familystars/internal/repository"
	"familystars/internal/validation"
)

var (
	ErrRewardNotFound    = errors.New("reward not found")
	ErrInsufficientStars = errors.New("not enough stars")
	ErrRewardHasHistory  = errors.New("reward has been redeemed and cannot be deleted")
	ErrNotChild          = errors.New("only children can redeem rewards")
)

// RewardService handles the reward catalog and redemptions
type RewardService struct {
	rewardRepo  *repository.RewardRepository
	profileRepo *repository.ProfileRepository
	hub         *realtime.Hub
}

// NewRewardService creates a new reward service
func NewRewardService(rewardRepo *repository.RewardRepository, profileRepo *repository.ProfileRepository, hub *realtime.Hub) *RewardService {
	return &RewardService{
		rewardRepo:  rewardRepo,
		profileRepo: profileRepo,
		hub:         hub,
	}
}

// CreateReward adds a reward to the family catalog. Parents only.
func (s *RewardService) CreateReward(actor *models.Profile, name, description string, price int, iconKey string) (*models.Reward, error) {
	if !actor.IsParent() {
		return nil, ErrNotParent
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidateStars("price", price); err != nil {
		return nil, err
	}

	reward, err := s.rewardRepo.CreateReward(actor.FamilyID, name, description, price, iconKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}
	return reward, nil
}

// GetReward retrieves a reward, enforcing family isolation
func (s *RewardService) GetReward(actor *models.Profile, rewardID int64) (*models.Reward, error) {
	reward, err := s.rewardRepo.GetRewardByID(rewardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	if reward == nil || reward.FamilyID != actor.FamilyID {
		return nil, ErrRewardNotFound
	}
	return reward, nil
}

// GetCatalog lists the family's rewards, cheapest first
func (s *RewardService) GetCatalog(actor *models.Profile) ([]models.Reward, error) {
	rewards, err := s.rewardRepo.GetFamilyRewards(actor.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	return rewards, nil
}

// UpdateReward edits a catalog entry. Parents only. Past redemptions keep
// the price they were redeemed at.
func (s *RewardService) UpdateReward(actor *models.Profile, rewardID int64, name, description string, price int, iconKey string) error {
	if !actor.IsParent() {
		return ErrNotParent
	}
	if _, err := s.GetReward(actor, rewardID); err != nil {
		return err
	}
	if err := validation.ValidateName(name); err != nil {
		return err
	}
	if err := validation.ValidateStars("price", price); err != nil {
		return err
	}

	if err := s.rewardRepo.UpdateReward(rewardID, name, description, price, iconKey); err != nil {
		return fmt.Errorf("failed to update reward: %w", err)
	}
	return nil
}

// DeleteReward removes a reward from the catalog. Parents only. Rewards
// with redemption history stay, since history references them.
func (s *RewardService) DeleteReward(actor *models.Profile, rewardID int64) error {
	if !actor.IsParent() {
		return ErrNotParent
	}
	if _, err := s.GetReward(actor, rewardID); err != nil {
		return err
	}

	hasHistory, err := s.rewardRepo.HasRedemptions(rewardID)
	if err != nil {
		return fmt.Errorf("failed to check redemptions: %w", err)
	}
	if hasHistory {
		return ErrRewardHasHistory
	}

	if err := s.rewardRepo.DeleteReward(rewardID); err != nil {
		return fmt.Errorf("failed to delete reward: %w", err)
	}
	return nil
}

// Redeem spends the actor's stars on a reward. Children only. The balance
// check and debit happen atomically at the data layer; the returned balance
// is the authoritative post-transaction value.
func (s *RewardService) Redeem(actor *models.Profile, rewardID int64) (int, error) {
	reward, err := s.GetReward(actor, rewardID)
	if err != nil {
		return 0, err
	}
	if actor.Role != models.RoleChild {
		return 0, ErrNotChild
	}

	ok, newBalance, err := s.rewardRepo.Redeem(reward, actor.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to redeem reward: %w", err)
	}
	if !ok {
		return 0, ErrInsufficientStars
	}

	if s.hub != nil {
		s.hub.PublishBalance(actor.ID, newBalance, "redemption")
	}

	return newBalance, nil
}

// GetFamilyHistory lists the family's redemption history. Parents see the
// whole family; children see their own.
func (s *RewardService) GetFamilyHistory(actor *models.Profile) ([]models.Redemption, error) {
	if !actor.IsParent() {
		return s.GetProfileHistory(actor, actor.ID)
	}
	history, err := s.rewardRepo.GetFamilyRedemptions(actor.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get redemption history: %w", err)
	}
	return history, nil
}

// GetProfileHistory lists one family member's redemption history
func (s *RewardService) GetProfileHistory(actor *models.Profile, profileID int64) ([]models.Redemption, error) {
	if actor.ID != profileID {
		target, err := s.profileRepo.GetProfileByID(profileID)
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}
		if target == nil || target.FamilyID != actor.FamilyID {
			return nil, ErrProfileNotFound
		}
	}
	history, err := s.rewardRepo.GetProfileRedemptions(profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get redemption history: %w", err)
	}
	return history, nil
}
