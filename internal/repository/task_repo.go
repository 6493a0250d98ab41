package repository

import (
	"database/sql"
	"fmt"
	"time"

	"familystars/internal/database"
	"familystars/internal/models"
)

// TaskRepository handles database operations for tasks. Status transitions
// are guarded at the SQL level so that concurrent requests cannot move a
// task along an illegal edge or credit stars twice.
type TaskRepository struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `
	id, family_id, created_by, assigned_to, title, COALESCE(description, ''),
	stars_value, due_date, COALESCE(icon_key, ''), status, completed_at,
	approved_at, approved_by, created_at, updated_at
`

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var dueDate, completedAt, approvedAt sql.NullTime
	var approvedBy sql.NullInt64

	err := row.Scan(
		&task.ID,
		&task.FamilyID,
		&task.CreatedBy,
		&task.AssignedTo,
		&task.Title,
		&task.Description,
		&task.StarsValue,
		&dueDate,
		&task.IconKey,
		&task.Status,
		&completedAt,
		&approvedAt,
		&approvedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	if approvedAt.Valid {
		task.ApprovedAt = &approvedAt.Time
	}
	if approvedBy.Valid {
		task.ApprovedBy = &approvedBy.Int64
	}

	return task, nil
}

// CreateTask creates a new pending task
func (r *TaskRepository) CreateTask(familyID, createdBy, assignedTo int64, title, description string, starsValue int, dueDate *time.Time, iconKey string) (*models.Task, error) {
	query := `
		INSERT INTO tasks (family_id, created_by, assigned_to, title, description, stars_value, due_date, icon_key, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, familyID, createdBy, assignedTo, title, description, starsValue, dueDate, iconKey, models.TaskStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return &models.Task{
		ID:          id,
		FamilyID:    familyID,
		CreatedBy:   createdBy,
		AssignedTo:  assignedTo,
		Title:       title,
		Description: description,
		StarsValue:  starsValue,
		DueDate:     dueDate,
		IconKey:     iconKey,
		Status:      models.TaskStatusPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// GetTaskByID retrieves a task by ID
func (r *TaskRepository) GetTaskByID(taskID int64) (*models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = ?"
	task, err := scanTask(r.db.QueryRow(query, taskID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// GetFamilyTasks retrieves tasks in a family, optionally filtered by status
func (r *TaskRepository) GetFamilyTasks(familyID int64, status string) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE family_id = ?"
	args := []interface{}{familyID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY due_date IS NULL, due_date ASC, created_at DESC"

	return r.queryTasks(query, args...)
}

// GetProfileTasks retrieves tasks assigned to a profile, optionally filtered
// by status
func (r *TaskRepository) GetProfileTasks(profileID int64, status string) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE assigned_to = ?"
	args := []interface{}{profileID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY due_date IS NULL, due_date ASC, created_at DESC"

	return r.queryTasks(query, args...)
}

// GetTasksDueInRange retrieves a family's tasks with a due date inside the
// given range, for the calendar view
func (r *TaskRepository) GetTasksDueInRange(familyID int64, from, to time.Time) ([]models.Task, error) {
	query := "SELECT " + taskColumns + ` FROM tasks
		WHERE family_id = ? AND due_date IS NOT NULL AND due_date >= ? AND due_date < ?
		ORDER BY due_date ASC`
	return r.queryTasks(query, familyID, from, to)
}

// GetProfileTasksDueInRange retrieves one profile's tasks with a due date
// inside the given range, for a child's calendar view
func (r *TaskRepository) GetProfileTasksDueInRange(profileID int64, from, to time.Time) ([]models.Task, error) {
	query := "SELECT " + taskColumns + ` FROM tasks
		WHERE assigned_to = ? AND due_date IS NOT NULL AND due_date >= ? AND due_date < ?
		ORDER BY due_date ASC`
	return r.queryTasks(query, profileID, from, to)
}

// GetApprovalQueue retrieves a family's tasks waiting for approval, oldest
// completion first
func (r *TaskRepository) GetApprovalQueue(familyID int64) ([]models.Task, error) {
	query := "SELECT " + taskColumns + ` FROM tasks
		WHERE family_id = ? AND status = ?
		ORDER BY completed_at ASC`
	return r.queryTasks(query, familyID, models.TaskStatusWaitingApproval)
}

func (r *TaskRepository) queryTasks(query string, args ...interface{}) ([]models.Task, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

// UpdateTask updates a task's editable fields. Only pending tasks may be
// edited; the WHERE clause enforces it.
func (r *TaskRepository) UpdateTask(taskID int64, title, description string, starsValue int, dueDate *time.Time, iconKey string) (bool, error) {
	query := `
		UPDATE tasks
		SET title = ?, description = ?, stars_value = ?, due_date = ?, icon_key = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Exec(query, title, description, starsValue, dueDate, iconKey, taskID, models.TaskStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to update task: %w", err)
	}
	return oneRowAffected(result)
}

// DeleteTask removes a task that has not yet been approved
func (r *TaskRepository) DeleteTask(taskID int64) (bool, error) {
	query := "DELETE FROM tasks WHERE id = ? AND status != ?"
	result, err := r.db.Exec(query, taskID, models.TaskStatusApproved)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	return oneRowAffected(result)
}

// CompleteTask moves a pending task to waiting_approval. Returns false if
// the task was not pending.
func (r *TaskRepository) CompleteTask(taskID int64) (bool, error) {
	query := `
		UPDATE tasks
		SET status = ?, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Exec(query, models.TaskStatusWaitingApproval, taskID, models.TaskStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}
	return oneRowAffected(result)
}

// RejectTask sends a waiting_approval task back to pending and clears its
// completion timestamp. Returns false if the task was not waiting.
func (r *TaskRepository) RejectTask(taskID int64) (bool, error) {
	query := `
		UPDATE tasks
		SET status = ?, completed_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Exec(query, models.TaskStatusPending, taskID, models.TaskStatusWaitingApproval)
	if err != nil {
		return false, fmt.Errorf("failed to reject task: %w", err)
	}
	return oneRowAffected(result)
}

// ApproveTask moves a waiting_approval task to approved and credits the
// assignee's star balance in the same transaction. The guarded UPDATE makes
// the credit exactly-once even under concurrent approvals. Returns the
// assignee's new balance, or transitioned=false when the task was not
// waiting for approval.
func (r *TaskRepository) ApproveTask(taskID, approverProfileID int64) (transitioned bool, assignedTo int64, newBalance int, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE tasks
		SET status = ?, approved_at = CURRENT_TIMESTAMP, approved_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`
	result, err := tx.Exec(query, models.TaskStatusApproved, approverProfileID, taskID, models.TaskStatusWaitingApproval)
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to approve task: %w", err)
	}
	ok, err := oneRowAffected(result)
	if err != nil {
		return false, 0, 0, err
	}
	if !ok {
		return false, 0, 0, nil
	}

	var starsValue int
	err = tx.QueryRow("SELECT assigned_to, stars_value FROM tasks WHERE id = ?", taskID).Scan(&assignedTo, &starsValue)
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to read approved task: %w", err)
	}

	_, err = tx.Exec("UPDATE profiles SET stars_balance = stars_balance + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", starsValue, assignedTo)
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to credit stars: %w", err)
	}

	err = tx.QueryRow("SELECT stars_balance FROM profiles WHERE id = ?", assignedTo).Scan(&newBalance)
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to read new balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, 0, fmt.Errorf("failed to commit approval: %w", err)
	}

	return true, assignedTo, newBalance, nil
}

func oneRowAffected(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows == 1, nil
}
