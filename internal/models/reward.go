package models

import "time"

// Reward is a catalog item purchasable with stars
type Reward struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int       `json:"price"`
	IconKey     string    `json:"icon_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Redemption records a child spending stars on a reward. Append-only; the
// price is captured at redemption time so later catalog edits don't rewrite
// history.
type Redemption struct {
	ID         int64     `json:"id"`
	FamilyID   int64     `json:"family_id"`
	RewardID   int64     `json:"reward_id"`
	RedeemedBy int64     `json:"redeemed_by"`
	Price      int       `json:"price"`
	CreatedAt  time.Time `json:"created_at"`

	// Populated via JOIN for history views
	RewardName   string `json:"reward_name,omitempty"`
	RedeemerName string `json:"redeemer_name,omitempty"`
}
