package models

import "time"

// Family is the isolation boundary: every profile, task, reward and
// redemption belongs to exactly one family.
type Family struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	LogoURL   string    `json:"logo_url,omitempty"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Roles a profile can hold within a family.
const (
	RoleAdminParent = "admin_parent"
	RoleParent      = "parent"
	RoleChild       = "child"
)

// Profile represents a family member. A profile may exist without a login
// credential (UserID nil): managed children log in with a generated
// username/password, and can later attach a real credential through the
// claim flow.
type Profile struct {
	ID           int64      `json:"id"`
	FamilyID     int64      `json:"family_id"`
	UserID       *int64     `json:"user_id,omitempty"`
	FullName     string     `json:"full_name"`
	DisplayName  string     `json:"display_name,omitempty"`
	Role         string     `json:"role"`
	StarsBalance int        `json:"stars_balance"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Email        string     `json:"email,omitempty"`
	Username     string     `json:"username,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsParent reports whether the profile can create tasks and approve them
func (p *Profile) IsParent() bool {
	return p.Role == RoleAdminParent || p.Role == RoleParent
}

// IsManaged reports whether the profile has no backing login credential
func (p *Profile) IsManaged() bool {
	return p.UserID == nil
}

// ChildCredentials is returned to the admin when a managed child profile is
// created or its password regenerated. The plaintext password is shown once
// and never stored.
type ChildCredentials struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	ClaimCode string `json:"claim_code"`
}
