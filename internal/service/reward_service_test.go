package service

import (
	"errors"
	"testing"
)

func TestRedeemDebitsBalance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "parent@example.com", "Pat Parent")
	child, _ := env.addManagedChild(t, admin, "Charlie Child")
	env.creditStars(t, admin, child, 50)

	reward, err := env.rewards.CreateReward(admin, "Movie night", "Pick the film", 30, "film")
	if err != nil {
		t.Fatalf("CreateReward failed: %v", err)
	}

	newBalance, err := env.rewards.Redeem(child, reward.ID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if newBalance != 20 {
		t.Errorf("balance after redeem = %d, want 20", newBalance)
	}
	if got := env.reload(t, child.ID).StarsBalance; got != 20 {
		t.Errorf("stored balance = %d, want 20", got)
	}

	history, err := env.rewards.GetProfileHistory(child, child.ID)
	if err != nil {
		t.Fatalf("GetProfileHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("redemption count = %d, want 1", len(history))
	}
	if history[0].Price != 30 {
		t.Errorf("redemption price = %d, want 30", history[0].Price)
	}
	if history[0].RewardName != "Movie night" {
		t.Errorf("redemption reward name = %q, want %q", history[0].RewardName, "Movie night")
	}
}

func TestRedeemInsufficientStars(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "parent@example.com", "Pat Parent")
	child, _ := env.addManagedChild(t, admin, "Charlie Child")
	env.creditStars(t, admin, child, 50)

	reward, err := env.rewards.CreateReward(admin, "Theme park trip", "", 60, "")
	if err != nil {
		t.Fatalf("CreateReward failed: %v", err)
	}

	if _, err := env.rewards.Redeem(child, reward.ID); !errors.Is(err, ErrInsufficientStars) {
		t.Errorf("Redeem with 50 stars at price 60: got %v, want ErrInsufficientStars", err)
	}

	// A failed redemption must not touch the balance or leave history
	if got := env.reload(t, child.ID).StarsBalance; got != 50 {
		t.Errorf("balance after failed redeem = %d, want 50", got)
	}
	history, err := env.rewards.GetProfileHistory(child, child.ID)
	if err != nil {
		t.Fatalf("GetProfileHistory failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("redemption count after failed redeem = %d, want 0", len(history))
	}
}

func TestRedeemExactBalance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "parent@example.com", "Pat Parent")
	child, _ := env.addManagedChild(t, admin, "Charlie Child")
	env.creditStars(t, admin, child, 40)

	reward, err := env.rewards.CreateReward(admin, "Ice cream", "", 40, "")
	if err != nil {
		t.Fatalf("CreateReward failed: %v", err)
	}

	newBalance, err := env.rewards.Redeem(child, reward.ID)
	if err != nil {
		t.Fatalf("Redeem at exact balance failed: %v", err)
	}
	if newBalance != 0 {
		t.Errorf("balance after exact redeem = %d, want 0", newBalance)
	}

	// The balance is now zero, so a repeat fails
	if _, err := env.rewards.Redeem(child, reward.ID); !errors.Is(err, ErrInsufficientStars) {
		t.Errorf("second Redeem: got %v, want ErrInsufficientStars", err)
	}
}

func TestRedeemIsChildOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "parent@example.com", "Pat Parent")

	reward, err := env.rewards.CreateReward(admin, "Movie night", "", 10, "")
	if err != nil {
		t.Fatalf("CreateReward failed: %v", err)
	}

	// Parents have no balance to spend; rewards are for children
	if _, err := env.rewards.Redeem(admin, reward.ID); !errors.Is(err, ErrNotChild) {
		t.Errorf("Redeem as parent: got %v, want ErrNotChild", err)
	}
}

func TestRewardCatalogManagement(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "parent@example.com", "Pat Parent")
	child, _ := env.addManagedChild(t, admin, "Charlie Child")

	// Children cannot manage the catalog
	if _, err := env.rewards.CreateReward(child, "Forbidden", "", 10, ""); !errors.Is(err, ErrNotParent) {
		t.Errorf("CreateReward as child: got %v, want ErrNotParent", err)
	}

	cheap, err := env.rewards.CreateReward(admin, "Sticker", "", 5, "")
	if err != nil {
		t.Fatalf("CreateReward failed: %v", err)
	}
	pricey, err := env.rewards.CreateReward(admin, "Game night", "", 50, "")
	if err != nil {
		t.Fatalf("CreateReward failed: %v", err)
	}

	// Catalog is ordered cheapest first
	catalog, err := env.rewards.GetCatalog(child)
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("catalog size = %d, want 2", len(catalog))
	}
	if catalog[0].ID != cheap.ID || catalog[1].ID != pricey.ID {
		t.Errorf("catalog order = [%d %d], want [%d %d]", catalog[0].ID, catalog[1].ID, cheap.ID, pricey.ID)
	}

	// Repricing does not rewrite history
	env.creditStars(t, admin, child, 50)
	if _, err := env.rewards.Redeem(child, pricey.ID); err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if err := env.rewards.UpdateReward(admin, pricey.ID, "Game night", "", 80, ""); err != nil {
		t.Fatalf("UpdateReward failed: %v", err)
	}
	history, err := env.rewards.GetProfileHistory(child, child.ID)
	if err != nil {
		t.Fatalf("GetProfileHistory failed: %v", err)
	}
	if history[0].Price != 50 {
		t.Errorf("historical price after repricing = %d, want 50", history[0].Price)
	}

	// Redeemed rewards cannot be deleted, unredeemed ones can
	if err := env.rewards.DeleteReward(admin, pricey.ID); !errors.Is(err, ErrRewardHasHistory) {
		t.Errorf("DeleteReward with history: got %v, want ErrRewardHasHistory", err)
	}
	if err := env.rewards.DeleteReward(admin, cheap.ID); err != nil {
		t.Fatalf("DeleteReward failed: %v", err)
	}
}

func TestRewardFamilyIsolation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "one@example.com", "Family One")
	_, otherAdmin := env.registerFamily(t, "two@example.com", "Family Two")

	reward, err := env.rewards.CreateReward(admin, "Private reward", "", 10, "")
	if err != nil {
		t.Fatalf("CreateReward failed: %v", err)
	}

	if _, err := env.rewards.GetReward(otherAdmin, reward.ID); !errors.Is(err, ErrRewardNotFound) {
		t.Errorf("cross-family GetReward: got %v, want ErrRewardNotFound", err)
	}
	if _, err := env.rewards.Redeem(otherAdmin, reward.ID); !errors.Is(err, ErrRewardNotFound) {
		t.Errorf("cross-family Redeem: got %v, want ErrRewardNotFound", err)
	}

	catalog, err := env.rewards.GetCatalog(otherAdmin)
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	if len(catalog) != 0 {
		t.Errorf("cross-family catalog size = %d, want 0", len(catalog))
	}
}
