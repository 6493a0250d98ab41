package models

import (
	"testing"
	"time"
)

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		expected  bool
	}{
		{
			name:      "future expiry",
			expiresAt: time.Now().Add(1 * time.Hour),
			expected:  false,
		},
		{
			name:      "past expiry",
			expiresAt: time.Now().Add(-1 * time.Hour),
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{ID: "abc", ExpiresAt: tt.expiresAt}
			if got := s.IsExpired(); got != tt.expected {
				t.Errorf("IsExpired() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTaskCanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		to       string
		expected bool
	}{
		{"pending to waiting_approval", TaskStatusPending, TaskStatusWaitingApproval, true},
		{"pending directly to approved", TaskStatusPending, TaskStatusApproved, false},
		{"waiting_approval to approved", TaskStatusWaitingApproval, TaskStatusApproved, true},
		{"waiting_approval back to pending", TaskStatusWaitingApproval, TaskStatusPending, true},
		{"approved to pending", TaskStatusApproved, TaskStatusPending, false},
		{"approved to waiting_approval", TaskStatusApproved, TaskStatusWaitingApproval, false},
		{"pending to pending", TaskStatusPending, TaskStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{Status: tt.from}
			if got := task.CanTransitionTo(tt.to); got != tt.expected {
				t.Errorf("CanTransitionTo(%q) from %q = %v, want %v", tt.to, tt.from, got, tt.expected)
			}
		})
	}
}

func TestTaskIsTerminal(t *testing.T) {
	if (&Task{Status: TaskStatusApproved}).IsTerminal() != true {
		t.Error("approved task should be terminal")
	}
	if (&Task{Status: TaskStatusWaitingApproval}).IsTerminal() != false {
		t.Error("waiting_approval task should not be terminal")
	}
}

func TestProfileIsParent(t *testing.T) {
	tests := []struct {
		role     string
		expected bool
	}{
		{RoleAdminParent, true},
		{RoleParent, true},
		{RoleChild, false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			p := &Profile{Role: tt.role}
			if got := p.IsParent(); got != tt.expected {
				t.Errorf("IsParent() with role %q = %v, want %v", tt.role, got, tt.expected)
			}
		})
	}
}

func TestProfileIsManaged(t *testing.T) {
	userID := int64(7)
	if (&Profile{UserID: &userID}).IsManaged() {
		t.Error("profile with a user should not be managed")
	}
	if !(&Profile{}).IsManaged() {
		t.Error("profile without a user should be managed")
	}
}

func TestInvitationValidity(t *testing.T) {
	now := time.Now()
	used := now.Add(-time.Minute)

	tests := []struct {
		name     string
		inv      Invitation
		expected bool
	}{
		{
			name:     "fresh invitation",
			inv:      Invitation{ExpiresAt: now.Add(time.Hour)},
			expected: true,
		},
		{
			name:     "expired invitation",
			inv:      Invitation{ExpiresAt: now.Add(-time.Hour)},
			expected: false,
		},
		{
			name:     "already used",
			inv:      Invitation{ExpiresAt: now.Add(time.Hour), UsedAt: &used},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inv.IsValid(); got != tt.expected {
				t.Errorf("IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}
