package service

import (
	"errors"
	"testing"

	"familystars/internal/models"
)

func TestTaskLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "parent@example.com", "Pat Parent")
	child, _ := env.addManagedChild(t, admin, "Charlie Child")

	task, err := env.tasks.CreateTask(admin, child.ID, "Tidy bedroom", "Everything off the floor", 25, "2026-09-05", "broom")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("new task status = %q, want %q", task.Status, models.TaskStatusPending)
	}
	if task.AssignedTo != child.ID {
		t.Errorf("assigned_to = %d, want %d", task.AssignedTo, child.ID)
	}
	if task.DueDate == nil {
		t.Error("expected due date to be set")
	}

	// Only the assignee can complete
	if _, err := env.tasks.CompleteTask(admin, task.ID); !errors.Is(err, ErrNotAssignee) {
		t.Errorf("CompleteTask by non-assignee: got %v, want ErrNotAssignee", err)
	}

	completed, err := env.tasks.CompleteTask(child, task.ID)
	if err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if completed.Status != models.TaskStatusWaitingApproval {
		t.Errorf("completed task status = %q, want %q", completed.Status, models.TaskStatusWaitingApproval)
	}
	if completed.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	// Completing again is a no-op transition
	if _, err := env.tasks.CompleteTask(child, task.ID); !errors.Is(err, ErrTaskNotPending) {
		t.Errorf("second CompleteTask: got %v, want ErrTaskNotPending", err)
	}

	// Children cannot approve, not even their own tasks
	if _, _, err := env.tasks.ApproveTask(child, task.ID); !errors.Is(err, ErrNotParent) {
		t.Errorf("ApproveTask by child: got %v, want ErrNotParent", err)
	}

	approved, newBalance, err := env.tasks.ApproveTask(admin, task.ID)
	if err != nil {
		t.Fatalf("ApproveTask failed: %v", err)
	}
	if approved.Status != models.TaskStatusApproved {
		t.Errorf("approved task status = %q, want %q", approved.Status, models.TaskStatusApproved)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != admin.ID {
		t.Errorf("approved_by = %v, want %d", approved.ApprovedBy, admin.ID)
	}
	if newBalance != 25 {
		t.Errorf("new balance = %d, want 25", newBalance)
	}
	if got := env.reload(t, child.ID).StarsBalance; got != 25 {
		t.Errorf("stored balance = %d, want 25", got)
	}
}

func TestApproveTaskCreditsExactlyOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "parent@example.com", "Pat Parent")
	child, _ := env.addManagedChild(t, admin, "Charlie Child")

	task, err := env.tasks.CreateTask(admin, child.ID, "Wash dishes", "", 10, "", "")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	// A task nobody has completed cannot be approved
	if _, _, err := env.tasks.ApproveTask(admin, task.ID); !errors.Is(err, ErrTaskNotWaiting) {
		t.Errorf("ApproveTask on pending task: got %v, want ErrTaskNotWaiting", err)
	}

	if _, err := env.tasks.CompleteTask(child, task.ID); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	if _, _, err := env.tasks.ApproveTask(admin, task.ID); err != nil {
		t.Fatalf("first ApproveTask failed: %v", err)
	}

	// A double submit must not credit twice
	if _, _, err := env.tasks.ApproveTask(admin, task.ID); !errors.Is(err, ErrTaskNotWaiting) {
		t.Errorf("second ApproveTask: got %v, want ErrTaskNotWaiting", err)
	}
	if got := env.reload(t, child.ID).StarsBalance; got != 10 {
		t.Errorf("balance after double approve = %d, want 10", got)
	}
}

func TestRejectTaskReturnsToPendingWithoutCredit(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "parent@example.com", "Pat Parent")
	child, _ := env.addManagedChild(t, admin, "Charlie Child")

	task, err := env.tasks.CreateTask(admin, child.ID, "Feed the cat", "", 5, "", "")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := env.tasks.CompleteTask(child, task.ID); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	rejected, err := env.tasks.RejectTask(admin, task.ID)
	if err != nil {
		t.Fatalf("RejectTask failed: %v", err)
	}
	if rejected.Status != models.TaskStatusPending {
		t.Errorf("rejected task status = %q, want %q", rejected.Status, models.TaskStatusPending)
	}
	if rejected.CompletedAt != nil {
		t.Error("expected completed_at to be cleared on reject")
	}
	if got := env.reload(t, child.ID).StarsBalance; got != 0 {
		t.Errorf("balance after reject = %d, want 0", got)
	}

	// Rejecting a pending task is not a legal transition
	if _, err := env.tasks.RejectTask(admin, task.ID); !errors.Is(err, ErrTaskNotWaiting) {
		t.Errorf("second RejectTask: got %v, want ErrTaskNotWaiting", err)
	}

	// The cycle can repeat: complete again and approve this time
	if _, err := env.tasks.CompleteTask(child, task.ID); err != nil {
		t.Fatalf("CompleteTask after reject failed: %v", err)
	}
	if _, newBalance, err := env.tasks.ApproveTask(admin, task.ID); err != nil {
		t.Fatalf("ApproveTask after reject failed: %v", err)
	} else if newBalance != 5 {
		t.Errorf("balance after approve = %d, want 5", newBalance)
	}
}

func TestUpdateAndDeleteTaskGuards(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "parent@example.com", "Pat Parent")
	child, _ := env.addManagedChild(t, admin, "Charlie Child")

	task, err := env.tasks.CreateTask(admin, child.ID, "Mow the lawn", "", 30, "", "")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	// Pending tasks can be edited
	if err := env.tasks.UpdateTask(admin, task.ID, "Mow the whole lawn", "Front and back", 40, "", ""); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	updated, err := env.tasks.GetTask(admin, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if updated.StarsValue != 40 {
		t.Errorf("stars_value after update = %d, want 40", updated.StarsValue)
	}

	if _, err := env.tasks.CompleteTask(child, task.ID); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	// Completed tasks can no longer be edited
	if err := env.tasks.UpdateTask(admin, task.ID, "Too late", "", 99, "", ""); !errors.Is(err, ErrTaskNotPending) {
		t.Errorf("UpdateTask on waiting task: got %v, want ErrTaskNotPending", err)
	}

	// Unapproved tasks can still be deleted
	if err := env.tasks.DeleteTask(admin, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := env.tasks.GetTask(admin, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("GetTask after delete: got %v, want ErrTaskNotFound", err)
	}

	// Approved tasks are permanent history
	env.creditStars(t, admin, child, 15)
	approvedTasks, err := env.tasks.GetFamilyTasks(admin, models.TaskStatusApproved)
	if err != nil {
		t.Fatalf("GetFamilyTasks failed: %v", err)
	}
	if len(approvedTasks) != 1 {
		t.Fatalf("approved task count = %d, want 1", len(approvedTasks))
	}
	if err := env.tasks.DeleteTask(admin, approvedTasks[0].ID); !errors.Is(err, ErrTaskAlreadyDecided) {
		t.Errorf("DeleteTask on approved task: got %v, want ErrTaskAlreadyDecided", err)
	}
}

func TestTaskFamilyIsolation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "one@example.com", "Family One")
	child, _ := env.addManagedChild(t, admin, "Charlie Child")
	_, otherAdmin := env.registerFamily(t, "two@example.com", "Family Two")

	task, err := env.tasks.CreateTask(admin, child.ID, "Private chore", "", 10, "", "")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	// Another family cannot see or touch the task
	if _, err := env.tasks.GetTask(otherAdmin, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("cross-family GetTask: got %v, want ErrTaskNotFound", err)
	}
	if _, _, err := env.tasks.ApproveTask(otherAdmin, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("cross-family ApproveTask: got %v, want ErrTaskNotFound", err)
	}

	// Nor assign tasks to the other family's children
	if _, err := env.tasks.CreateTask(otherAdmin, child.ID, "Poached chore", "", 10, "", ""); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("cross-family CreateTask: got %v, want ErrProfileNotFound", err)
	}
}

func TestCreateTaskRequiresChildAssignee(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "parent@example.com", "Pat Parent")

	if _, err := env.tasks.CreateTask(admin, admin.ID, "Self-assigned chore", "", 10, "", ""); !errors.Is(err, ErrAssigneeNotChild) {
		t.Errorf("CreateTask assigned to a parent: got %v, want ErrAssigneeNotChild", err)
	}
}

func TestChildTaskViewsAreScoped(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "parent@example.com", "Pat Parent")
	alice, _ := env.addManagedChild(t, admin, "Alice Child")
	bob, _ := env.addManagedChild(t, admin, "Bob Child")

	if _, err := env.tasks.CreateTask(admin, alice.ID, "Alice's chore", "", 5, "", ""); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := env.tasks.CreateTask(admin, bob.ID, "Bob's chore", "", 5, "", ""); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	// Parents see everything
	all, err := env.tasks.GetFamilyTasks(admin, "")
	if err != nil {
		t.Fatalf("GetFamilyTasks failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("parent task count = %d, want 2", len(all))
	}

	// Children only see their own assignments
	own, err := env.tasks.GetFamilyTasks(alice, "")
	if err != nil {
		t.Fatalf("GetFamilyTasks as child failed: %v", err)
	}
	if len(own) != 1 {
		t.Fatalf("child task count = %d, want 1", len(own))
	}
	if own[0].AssignedTo != alice.ID {
		t.Errorf("child sees task assigned to %d, want %d", own[0].AssignedTo, alice.ID)
	}

	// And children cannot read the approval queue
	if _, err := env.tasks.GetApprovalQueue(alice); !errors.Is(err, ErrNotParent) {
		t.Errorf("GetApprovalQueue as child: got %v, want ErrNotParent", err)
	}
}

func TestGetCalendar(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, admin := env.registerFamily(t, "parent@example.com", "Pat Parent")
	child, _ := env.addManagedChild(t, admin, "Charlie Child")
	sibling, _ := env.addManagedChild(t, admin, "Sam Sibling")

	if _, err := env.tasks.CreateTask(admin, child.ID, "In range", "", 5, "2026-09-10", ""); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := env.tasks.CreateTask(admin, child.ID, "Out of range", "", 5, "2026-10-01", ""); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := env.tasks.CreateTask(admin, child.ID, "Undated", "", 5, "", ""); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := env.tasks.CreateTask(admin, sibling.ID, "Sibling's chore", "", 5, "2026-09-12", ""); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	// Parents see the whole family's dated tasks
	tasks, err := env.tasks.GetCalendar(admin, "2026-09-01", "2026-09-30")
	if err != nil {
		t.Fatalf("GetCalendar failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("calendar task count = %d, want 2", len(tasks))
	}
	if tasks[0].Title != "In range" {
		t.Errorf("calendar task = %q, want %q", tasks[0].Title, "In range")
	}

	// Children only see their own assignments
	own, err := env.tasks.GetCalendar(child, "2026-09-01", "2026-09-30")
	if err != nil {
		t.Fatalf("GetCalendar as child failed: %v", err)
	}
	if len(own) != 1 {
		t.Fatalf("child calendar task count = %d, want 1", len(own))
	}
	if own[0].AssignedTo != child.ID {
		t.Errorf("child calendar shows task assigned to %d, want %d", own[0].AssignedTo, child.ID)
	}

	// Both bounds are required
	if _, err := env.tasks.GetCalendar(admin, "2026-09-01", ""); err == nil {
		t.Error("expected error for missing to date")
	}
}
