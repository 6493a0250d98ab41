package service

import (
	"errors"
	"fmt"
	"time"

	"familystars/internal/models"
	"familystars/internal/realtime"
	"familystars/internal/repository"
	"familystars/internal/validation"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrTaskNotPending     = errors.New("task is not pending")
	ErrTaskNotWaiting     = errors.New("task is not waiting for approval")
	ErrNotAssignee        = errors.New("task is assigned to someone else")
	ErrTaskAlreadyDecided = errors.New("task was already approved")
	ErrAssigneeNotChild   = errors.New("tasks can only be assigned to children")
)

// TaskService handles the task lifecycle. All transitions are validated
// here and enforced again by guarded updates in the repository, so a stale
// client can never replay a transition.
type TaskService struct {
	taskRepo    *repository.TaskRepository
	profileRepo *repository.ProfileRepository
	hub         *realtime.Hub
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo *repository.TaskRepository, profileRepo *repository.ProfileRepository, hub *realtime.Hub) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		profileRepo: profileRepo,
		hub:         hub,
	}
}

// CreateTask creates a pending task. Parents only; the assignee must be a
// child in the actor's family.
func (s *TaskService) CreateTask(actor *models.Profile, assignedTo int64, title, description string, starsValue int, dueDate, iconKey string) (*models.Task, error) {
	if !actor.IsParent() {
		return nil, ErrNotParent
	}
	if err := validation.ValidateTitle(title); err != nil {
		return nil, err
	}
	if err := validation.ValidateStars("stars_value", starsValue); err != nil {
		return nil, err
	}
	due, err := validation.ValidateDate("due_date", dueDate)
	if err != nil {
		return nil, err
	}

	assignee, err := s.profileRepo.GetProfileByID(assignedTo)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignee: %w", err)
	}
	if assignee == nil || assignee.FamilyID != actor.FamilyID {
		return nil, ErrProfileNotFound
	}
	if assignee.Role != models.RoleChild {
		return nil, ErrAssigneeNotChild
	}

	task, err := s.taskRepo.CreateTask(actor.FamilyID, actor.ID, assignedTo, title, description, starsValue, due, iconKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// GetTask retrieves a task, enforcing family isolation
func (s *TaskService) GetTask(actor *models.Profile, taskID int64) (*models.Task, error) {
	task, err := s.taskRepo.GetTaskByID(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil || task.FamilyID != actor.FamilyID {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// GetFamilyTasks lists the family's tasks, optionally filtered by status.
// Children only see their own assignments.
func (s *TaskService) GetFamilyTasks(actor *models.Profile, status string) ([]models.Task, error) {
	if status != "" && !validTaskStatus(status) {
		return nil, errors.New("invalid task status")
	}
	if !actor.IsParent() {
		return s.getProfileTasks(actor.ID, status)
	}
	tasks, err := s.taskRepo.GetFamilyTasks(actor.FamilyID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to get family tasks: %w", err)
	}
	return tasks, nil
}

// GetProfileTasks lists tasks assigned to a specific family member
func (s *TaskService) GetProfileTasks(actor *models.Profile, profileID int64, status string) ([]models.Task, error) {
	if actor.ID != profileID {
		target, err := s.profileRepo.GetProfileByID(profileID)
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}
		if target == nil || target.FamilyID != actor.FamilyID {
			return nil, ErrProfileNotFound
		}
	}
	return s.getProfileTasks(profileID, status)
}

func (s *TaskService) getProfileTasks(profileID int64, status string) ([]models.Task, error) {
	tasks, err := s.taskRepo.GetProfileTasks(profileID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile tasks: %w", err)
	}
	return tasks, nil
}

// GetCalendar lists the family's dated tasks in a date range. Children only
// see their own assignments.
func (s *TaskService) GetCalendar(actor *models.Profile, from, to string) ([]models.Task, error) {
	fromDate, err := validation.ValidateDate("from", from)
	if err != nil {
		return nil, err
	}
	toDate, err := validation.ValidateDate("to", to)
	if err != nil {
		return nil, err
	}
	if fromDate == nil || toDate == nil {
		return nil, errors.New("from and to dates are required")
	}

	if !actor.IsParent() {
		tasks, err := s.taskRepo.GetProfileTasksDueInRange(actor.ID, *fromDate, toDate.Add(24*time.Hour))
		if err != nil {
			return nil, fmt.Errorf("failed to get calendar: %w", err)
		}
		return tasks, nil
	}

	tasks, err := s.taskRepo.GetTasksDueInRange(actor.FamilyID, *fromDate, toDate.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar: %w", err)
	}
	return tasks, nil
}

// GetApprovalQueue lists the family's tasks waiting for approval. Parents
// only.
func (s *TaskService) GetApprovalQueue(actor *models.Profile) ([]models.Task, error) {
	if !actor.IsParent() {
		return nil, ErrNotParent
	}
	tasks, err := s.taskRepo.GetApprovalQueue(actor.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval queue: %w", err)
	}
	return tasks, nil
}

// UpdateTask edits a pending task. Parents only.
func (s *TaskService) UpdateTask(actor *models.Profile, taskID int64, title, description string, starsValue int, dueDate, iconKey string) error {
	if !actor.IsParent() {
		return ErrNotParent
	}
	if _, err := s.GetTask(actor, taskID); err != nil {
		return err
	}
	if err := validation.ValidateTitle(title); err != nil {
		return err
	}
	if err := validation.ValidateStars("stars_value", starsValue); err != nil {
		return err
	}
	due, err := validation.ValidateDate("due_date", dueDate)
	if err != nil {
		return err
	}

	updated, err := s.taskRepo.UpdateTask(taskID, title, description, starsValue, due, iconKey)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if !updated {
		return ErrTaskNotPending
	}
	return nil
}

// DeleteTask removes a task that has not been approved yet. Parents only.
func (s *TaskService) DeleteTask(actor *models.Profile, taskID int64) error {
	if !actor.IsParent() {
		return ErrNotParent
	}
	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return err
	}
	if task.IsTerminal() {
		return ErrTaskAlreadyDecided
	}

	deleted, err := s.taskRepo.DeleteTask(taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return ErrTaskAlreadyDecided
	}
	return nil
}

// CompleteTask marks a pending task done, sending it to the approval
// queue. Only the assignee can complete their own task.
func (s *TaskService) CompleteTask(actor *models.Profile, taskID int64) (*models.Task, error) {
	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssignedTo != actor.ID {
		return nil, ErrNotAssignee
	}
	if !task.CanTransitionTo(models.TaskStatusWaitingApproval) {
		return nil, ErrTaskNotPending
	}

	completed, err := s.taskRepo.CompleteTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}
	if !completed {
		return nil, ErrTaskNotPending
	}

	return s.taskRepo.GetTaskByID(taskID)
}

// ApproveTask accepts a completed task and credits the assignee's stars.
// Parents only. The repository makes the credit exactly-once, so a double
// submit returns ErrTaskNotWaiting instead of crediting twice.
func (s *TaskService) ApproveTask(actor *models.Profile, taskID int64) (*models.Task, int, error) {
	if !actor.IsParent() {
		return nil, 0, ErrNotParent
	}
	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return nil, 0, err
	}
	if !task.CanTransitionTo(models.TaskStatusApproved) {
		return nil, 0, ErrTaskNotWaiting
	}

	transitioned, assignedTo, newBalance, err := s.taskRepo.ApproveTask(taskID, actor.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to approve task: %w", err)
	}
	if !transitioned {
		return nil, 0, ErrTaskNotWaiting
	}

	if s.hub != nil {
		s.hub.PublishBalance(assignedTo, newBalance, "task_approved")
	}

	task, err = s.taskRepo.GetTaskByID(taskID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to reload task: %w", err)
	}
	return task, newBalance, nil
}

// RejectTask sends a completed task back to pending without crediting any
// stars. Parents only.
func (s *TaskService) RejectTask(actor *models.Profile, taskID int64) (*models.Task, error) {
	if !actor.IsParent() {
		return nil, ErrNotParent
	}
	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return nil, err
	}
	if !task.CanTransitionTo(models.TaskStatusPending) {
		return nil, ErrTaskNotWaiting
	}

	rejected, err := s.taskRepo.RejectTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to reject task: %w", err)
	}
	if !rejected {
		return nil, ErrTaskNotWaiting
	}

	return s.taskRepo.GetTaskByID(taskID)
}

func validTaskStatus(status string) bool {
	switch status {
	case models.TaskStatusPending, models.TaskStatusWaitingApproval, models.TaskStatusApproved:
		return true
	}
	return false
}
