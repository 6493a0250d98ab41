package handlers

import (
	"net/http"
	"strconv"

	"familystars/internal/models"
	"familystars/internal/service"
)

// TaskHandler handles task lifecycle HTTP requests
type TaskHandler struct {
	taskService *service.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func formInt(r *http.Request, name string) (int, error) {
	return strconv.Atoi(r.FormValue(name))
}

// CreateTask creates a pending task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	assignedTo, err := strconv.ParseInt(r.FormValue("assigned_to"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid assignee", "", err)
		return
	}
	starsValue, err := formInt(r, "stars_value")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid stars value", "", err)
		return
	}

	task, err := h.taskService.CreateTask(auth.Profile, assignedTo,
		r.FormValue("title"), r.FormValue("description"), starsValue,
		r.FormValue("due_date"), r.FormValue("icon_key"))
	if err != nil {
		respondServiceError(w, err, "Failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// GetTasks lists tasks. Parents see the whole family, children their own
// assignments. An optional status query filters by lifecycle state.
func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	tasks, err := h.taskService.GetFamilyTasks(auth.Profile, r.URL.Query().Get("status"))
	if err != nil {
		respondServiceError(w, err, "Failed to get tasks")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	respondJSON(w, http.StatusOK, tasks)
}

// GetTask returns a single task
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	taskID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task ID", "", err)
		return
	}

	task, err := h.taskService.GetTask(auth.Profile, taskID)
	if err != nil {
		respondServiceError(w, err, "Failed to get task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// GetProfileTasks lists tasks assigned to one family member
func (h *TaskHandler) GetProfileTasks(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	profileID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid profile ID", "", err)
		return
	}

	tasks, err := h.taskService.GetProfileTasks(auth.Profile, profileID, r.URL.Query().Get("status"))
	if err != nil {
		respondServiceError(w, err, "Failed to get tasks")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	respondJSON(w, http.StatusOK, tasks)
}

// GetCalendar lists dated tasks between the from and to query dates
func (h *TaskHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	tasks, err := h.taskService.GetCalendar(auth.Profile,
		r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondServiceError(w, err, "Failed to get calendar")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	respondJSON(w, http.StatusOK, tasks)
}

// GetApprovalQueue lists tasks waiting for this family's approval
func (h *TaskHandler) GetApprovalQueue(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	tasks, err := h.taskService.GetApprovalQueue(auth.Profile)
	if err != nil {
		respondServiceError(w, err, "Failed to get approval queue")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	respondJSON(w, http.StatusOK, tasks)
}

// UpdateTask edits a pending task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	taskID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task ID", "", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	starsValue, err := formInt(r, "stars_value")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid stars value", "", err)
		return
	}

	err = h.taskService.UpdateTask(auth.Profile, taskID,
		r.FormValue("title"), r.FormValue("description"), starsValue,
		r.FormValue("due_date"), r.FormValue("icon_key"))
	if err != nil {
		respondServiceError(w, err, "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteTask removes an unapproved task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	taskID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task ID", "", err)
		return
	}

	if err := h.taskService.DeleteTask(auth.Profile, taskID); err != nil {
		respondServiceError(w, err, "Failed to delete task")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// CompleteTask marks the caller's own task done
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	taskID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task ID", "", err)
		return
	}

	task, err := h.taskService.CompleteTask(auth.Profile, taskID)
	if err != nil {
		respondServiceError(w, err, "Failed to complete task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// ApproveTask accepts a completed task and credits stars. The response
// carries the assignee's authoritative new balance.
func (h *TaskHandler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	taskID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task ID", "", err)
		return
	}

	task, newBalance, err := h.taskService.ApproveTask(auth.Profile, taskID)
	if err != nil {
		respondServiceError(w, err, "Failed to approve task")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"task":        task,
		"new_balance": newBalance,
	})
}

// RejectTask sends a completed task back to pending
func (h *TaskHandler) RejectTask(w http.ResponseWriter, r *http.Request) {
	auth := GetAuth(r.Context())

	taskID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task ID", "", err)
		return
	}

	task, err := h.taskService.RejectTask(auth.Profile, taskID)
	if err != nil {
		respondServiceError(w, err, "Failed to reject task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}
