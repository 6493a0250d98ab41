package service

import (
	"path/filepath"
	"testing"
	"time"

	"familystars/internal/database"
	"familystars/internal/models"
	"familystars/internal/repository"
)

// testEnv wires the full service stack against a throwaway SQLite database
type testEnv struct {
	db *database.DB

	profiles *repository.ProfileRepository

	auth    *AuthService
	family  *FamilyService
	tasks   *TaskService
	rewards *RewardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "service_test.db")
	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	return &testEnv{
		db:       db,
		profiles: profileRepo,
		auth:     NewAuthService(userRepo, familyRepo, profileRepo, invitationRepo, time.Hour),
		family:   NewFamilyService(familyRepo, profileRepo, invitationRepo),
		tasks:    NewTaskService(taskRepo, profileRepo, nil),
		rewards:  NewRewardService(rewardRepo, profileRepo, nil),
	}
}

// registerFamily creates a user with a fresh family and returns the admin
// parent profile alongside the user
func (e *testEnv) registerFamily(t *testing.T, email, name string) (*models.User, *models.Profile) {
	t.Helper()
	user, profile, err := e.auth.Register(email, "password123", name, "")
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return user, profile
}

// addManagedChild creates a managed child profile in the admin's family
func (e *testEnv) addManagedChild(t *testing.T, admin *models.Profile, name string) (*models.Profile, *models.ChildCredentials) {
	t.Helper()
	child, creds, err := e.family.CreateManagedChild(admin, name)
	if err != nil {
		t.Fatalf("CreateManagedChild(%s) failed: %v", name, err)
	}
	return child, creds
}

// reload fetches the current state of a profile
func (e *testEnv) reload(t *testing.T, profileID int64) *models.Profile {
	t.Helper()
	profile, err := e.profiles.GetProfileByID(profileID)
	if err != nil {
		t.Fatalf("GetProfileByID(%d) failed: %v", profileID, err)
	}
	if profile == nil {
		t.Fatalf("profile %d not found", profileID)
	}
	return profile
}

// creditStars runs a task through its full lifecycle so the child ends up
// with stars to spend
func (e *testEnv) creditStars(t *testing.T, admin, child *models.Profile, stars int) {
	t.Helper()
	task, err := e.tasks.CreateTask(admin, child.ID, "Earn some stars", "", stars, "", "")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := e.tasks.CompleteTask(child, task.ID); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if _, _, err := e.tasks.ApproveTask(admin, task.ID); err != nil {
		t.Fatalf("ApproveTask failed: %v", err)
	}
}
