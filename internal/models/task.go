package models

import "time"

// Task lifecycle states. The only legal transitions are
// pending -> waiting_approval (assignee completes),
// waiting_approval -> approved (approver accepts, stars credited) and
// waiting_approval -> pending (approver rejects). Approved is terminal.
const (
	TaskStatusPending         = "pending"
	TaskStatusWaitingApproval = "waiting_approval"
	TaskStatusApproved        = "approved"
)

// Task is an assignable chore with a star value
type Task struct {
	ID          int64      `json:"id"`
	FamilyID    int64      `json:"family_id"`
	CreatedBy   int64      `json:"created_by"`
	AssignedTo  int64      `json:"assigned_to"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StarsValue  int        `json:"stars_value"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IconKey     string     `json:"icon_key,omitempty"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  *int64     `json:"approved_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the task can no longer change state
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusApproved
}

// CanTransitionTo reports whether moving to the given status is a legal
// lifecycle transition from the task's current state.
func (t *Task) CanTransitionTo(status string) bool {
	switch t.Status {
	case TaskStatusPending:
		return status == TaskStatusWaitingApproval
	case TaskStatusWaitingApproval:
		return status == TaskStatusApproved || status == TaskStatusPending
	default:
		return false
	}
}
