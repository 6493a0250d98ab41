package service

import (
	"errors"
	"testing"

	"familystars/internal/models"
	"familystars/internal/security"
)

func TestCreateManagedChild(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "admin@example.com", "Alex Admin")

	child, creds, err := env.family.CreateManagedChild(admin, "Charlie Child")
	if err != nil {
		t.Fatalf("CreateManagedChild failed: %v", err)
	}
	if child.Role != models.RoleChild {
		t.Errorf("child role = %q, want %q", child.Role, models.RoleChild)
	}
	if !child.IsManaged() {
		t.Error("expected a managed profile with no user_id")
	}
	if child.StarsBalance != 0 {
		t.Errorf("new child balance = %d, want 0", child.StarsBalance)
	}
	if creds.Username == "" || creds.Password == "" || creds.ClaimCode == "" {
		t.Errorf("incomplete credentials: %+v", creds)
	}

	// Only the admin can add children
	child2, _ := env.addManagedChild(t, admin, "Bobby Child")
	if _, _, err := env.family.CreateManagedChild(child2, "Nested Child"); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("CreateManagedChild as child: got %v, want ErrNotAdmin", err)
	}
}

func TestChildLoginAndSession(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "admin@example.com", "Alex Admin")
	child, creds := env.addManagedChild(t, admin, "Charlie Child")

	sessionID, _, profile, err := env.family.ChildLogin(creds.Username, creds.Password)
	if err != nil {
		t.Fatalf("ChildLogin failed: %v", err)
	}
	if profile.ID != child.ID {
		t.Errorf("logged in profile = %d, want %d", profile.ID, child.ID)
	}

	resolved, err := env.family.ValidateChildSession(sessionID)
	if err != nil {
		t.Fatalf("ValidateChildSession failed: %v", err)
	}
	if resolved.ID != child.ID {
		t.Errorf("session profile = %d, want %d", resolved.ID, child.ID)
	}

	if err := env.family.LogoutChild(sessionID); err != nil {
		t.Fatalf("LogoutChild failed: %v", err)
	}
	if _, err := env.family.ValidateChildSession(sessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ValidateChildSession after logout: got %v, want ErrSessionNotFound", err)
	}

	if _, _, _, err := env.family.ChildLogin(creds.Username, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("ChildLogin with wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, _, _, err := env.family.ChildLogin("no-such-user", creds.Password); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("ChildLogin with unknown username: got %v, want ErrInvalidCredentials", err)
	}
}

func TestRegenerateChildPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "admin@example.com", "Alex Admin")
	child, creds := env.addManagedChild(t, admin, "Charlie Child")

	newPassword, err := env.family.RegenerateChildPassword(admin, child.ID)
	if err != nil {
		t.Fatalf("RegenerateChildPassword failed: %v", err)
	}
	if newPassword == creds.Password {
		t.Error("expected a different password after regeneration")
	}

	// Old password is dead, new one works
	if _, _, _, err := env.family.ChildLogin(creds.Username, creds.Password); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("ChildLogin with old password: got %v, want ErrInvalidCredentials", err)
	}
	if _, _, _, err := env.family.ChildLogin(creds.Username, newPassword); err != nil {
		t.Errorf("ChildLogin with new password failed: %v", err)
	}

	// Profiles with a real credential cannot have their password reissued here
	if _, err := env.family.RegenerateChildPassword(admin, admin.ID); err == nil {
		t.Error("expected error regenerating password for a credentialed profile")
	}
}

func TestGetFamilyMembers(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "admin@example.com", "Alex Admin")
	env.addManagedChild(t, admin, "Charlie Child")
	env.addManagedChild(t, admin, "Bobby Child")
	_, otherAdmin := env.registerFamily(t, "other@example.com", "Other Admin")

	members, err := env.family.GetFamilyMembers(admin, admin.FamilyID)
	if err != nil {
		t.Fatalf("GetFamilyMembers failed: %v", err)
	}
	if len(members) != 3 {
		t.Errorf("member count = %d, want 3", len(members))
	}

	if _, err := env.family.GetFamilyMembers(otherAdmin, admin.FamilyID); !errors.Is(err, ErrNotFamilyMember) {
		t.Errorf("cross-family GetFamilyMembers: got %v, want ErrNotFamilyMember", err)
	}
}

func TestUpdateProfilePermissions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "admin@example.com", "Alex Admin")
	child, _ := env.addManagedChild(t, admin, "Charlie Child")

	// Profiles edit themselves
	if err := env.family.UpdateProfile(child, child.ID, "CJ", "", "2015-06-01"); err != nil {
		t.Fatalf("UpdateProfile self failed: %v", err)
	}
	updated := env.reload(t, child.ID)
	if updated.DisplayName != "CJ" {
		t.Errorf("display name = %q, want %q", updated.DisplayName, "CJ")
	}
	if updated.DateOfBirth == nil {
		t.Error("expected date of birth to be set")
	}

	// Parents edit their managed children
	if err := env.family.UpdateProfile(admin, child.ID, "Charlie", "", ""); err != nil {
		t.Fatalf("UpdateProfile managed child failed: %v", err)
	}

	// Children do not edit other profiles
	if err := env.family.UpdateProfile(child, admin.ID, "Hacked", "", ""); !errors.Is(err, ErrNotParent) {
		t.Errorf("UpdateProfile by child on parent: got %v, want ErrNotParent", err)
	}

	// Bad dates are rejected
	if err := env.family.UpdateProfile(child, child.ID, "CJ", "", "01/06/2015"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestFamilyRename(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "admin@example.com", "Alex Admin")
	child, _ := env.addManagedChild(t, admin, "Charlie Child")

	if err := env.family.UpdateFamily(admin, admin.FamilyID, "The Star Squad"); err != nil {
		t.Fatalf("UpdateFamily failed: %v", err)
	}
	family, err := env.family.GetFamily(admin.FamilyID)
	if err != nil {
		t.Fatalf("GetFamily failed: %v", err)
	}
	if family.Name != "The Star Squad" {
		t.Errorf("family name = %q, want %q", family.Name, "The Star Squad")
	}

	if err := env.family.UpdateFamily(child, child.FamilyID, "Kids Rule"); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("UpdateFamily as child: got %v, want ErrNotAdmin", err)
	}
}

func TestChildUsernamesAreUnique(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "admin@example.com", "Alex Admin")

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		_, creds := env.addManagedChild(t, admin, "Repeat Child")
		if seen[creds.Username] {
			t.Fatalf("username %q issued twice", creds.Username)
		}
		seen[creds.Username] = true

		if !security.CheckPassword(creds.Password, mustChildHash(t, env, creds.Username)) {
			t.Errorf("stored hash does not match issued password for %q", creds.Username)
		}
	}
}

func mustChildHash(t *testing.T, env *testEnv, username string) string {
	t.Helper()
	profile, err := env.profiles.GetProfileByUsername(username)
	if err != nil || profile == nil {
		t.Fatalf("GetProfileByUsername(%q) failed: %v", username, err)
	}
	hash, err := env.profiles.GetChildPasswordHash(profile.ID)
	if err != nil {
		t.Fatalf("GetChildPasswordHash failed: %v", err)
	}
	return hash
}
