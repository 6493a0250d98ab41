package handlers

import (
	"net/http"

	"familystars/internal/models"
	"familystars/internal/service"
)

// RewardHandler handles reward catalog and redemption HTTP requests
type RewardHandler struct {
	rewardService *service.RewardService
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(rewardService *service.RewardService) *RewardHandler {
	return &RewardHandler{rewardService: rewardService}
}

// CreateReward adds a reward to the family catalog
func (h *RewardHandler) CreateReward(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	price, err := formInt(r, "price")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid price", "", err)
		return
	}

	reward, err := h.rewardService.CreateReward(auth.Profile,
		r.FormValue("name"), r.FormValue("description"), price, r.FormValue("icon_key"))
	if err != nil {
		respondServiceError(w, err, "Failed to create reward")
		return
	}

	respondJSON(w, http.StatusCreated, reward)
}

// GetCatalog lists the family's rewards, cheapest first
func (h *RewardHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	rewards, err := h.rewardService.GetCatalog(auth.Profile)
	if err != nil {
		respondServiceError(w, err, "Failed to get rewards")
		return
	}
	if rewards == nil {
		rewards = []models.Reward{}
	}

	respondJSON(w, http.StatusOK, rewards)
}

// GetReward returns a single reward
func (h *RewardHandler) GetReward(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	rewardID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid reward ID", "", err)
		return
	}

	reward, err := h.rewardService.GetReward(auth.Profile, rewardID)
	if err != nil {
		respondServiceError(w, err, "Failed to get reward")
		return
	}

	respondJSON(w, http.StatusOK, reward)
}

// UpdateReward edits a catalog entry
func (h *RewardHandler) UpdateReward(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	rewardID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid reward ID", "", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	price, err := formInt(r, "price")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid price", "", err)
		return
	}

	err = h.rewardService.UpdateReward(auth.Profile, rewardID,
		r.FormValue("name"), r.FormValue("description"), price, r.FormValue("icon_key"))
	if err != nil {
		respondServiceError(w, err, "Failed to update reward")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteReward removes a reward that has never been redeemed
func (h *RewardHandler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	rewardID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid reward ID", "", err)
		return
	}

	if err := h.rewardService.DeleteReward(auth.Profile, rewardID); err != nil {
		respondServiceError(w, err, "Failed to delete reward")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Redeem spends the caller's stars on a reward. The response carries
// the authoritative post-debit balance.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	rewardID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid reward ID", "", err)
		return
	}

	newBalance, err := h.rewardService.Redeem(auth.Profile, rewardID)
	if err != nil {
		respondServiceError(w, err, "Failed to redeem reward")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"new_balance": newBalance})
}

// GetRedemptions lists redemption history. Parents see the whole family,
// children their own spending.
func (h *RewardHandler) GetRedemptions(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	redemptions, err := h.rewardService.GetFamilyHistory(auth.Profile)
	if err != nil {
		respondServiceError(w, err, "Failed to get redemptions")
		return
	}
	if redemptions == nil {
		redemptions = []models.Redemption{}
	}

	respondJSON(w, http.StatusOK, redemptions)
}

// GetProfileRedemptions lists one member's redemption history
func (h *RewardHandler) GetProfileRedemptions(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	profileID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid profile ID", "", err)
		return
	}

	redemptions, err := h.rewardService.GetProfileHistory(auth.Profile, profileID)
	if err != nil {
		respondServiceError(w, err, "Failed to get redemptions")
		return
	}
	if redemptions == nil {
		redemptions = []models.Redemption{}
	}

	respondJSON(w, http.StatusOK, redemptions)
}
