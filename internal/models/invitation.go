package models

import "time"

// Invitation is a shareable code that lets a signup join an existing family
// with a fixed role. Consumed at most once.
type Invitation struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	FamilyID    int64      `json:"family_id"`
	Role        string     `json:"role"` // 'parent' or 'child', never 'admin_parent'
	Email       string     `json:"email,omitempty"`
	InvitedBy   int64      `json:"invited_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	UsedBy      *int64     `json:"used_by,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	InviterName string     `json:"inviter_name,omitempty"` // Populated via JOIN
	FamilyName  string     `json:"family_name,omitempty"`  // Populated via JOIN
}

func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

func (i *Invitation) IsUsed() bool {
	return i.UsedAt != nil
}

func (i *Invitation) IsValid() bool {
	return !i.IsExpired() && !i.IsUsed()
}
