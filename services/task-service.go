package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shiled-1/task-sheduler/logging"
	"github.com/shiled-1/task-sheduler/models"
	"github.com/shiled-1/task-sheduler/policy"
	"github.com/shiled-1/task-sheduler/repositories"
)

// UnknownUserName stands in for a user id that no longer resolves.
const UnknownUserName = "Unknown User"

type TaskService struct {
	users repositories.UserStore
	tasks repositories.TaskStore
	now   func() time.Time
	newID func() string
}

func NewTaskService(users repositories.UserStore, tasks repositories.TaskStore) *TaskService {
	return &TaskService{
		users: users,
		tasks: tasks,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithClock replaces the service's time source.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

type NewTask struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	AssignedTo  string              `json:"assignedTo"`
	Deadline    string              `json:"deadline"`
	Priority    models.TaskPriority `json:"priority"`
	Status      models.TaskStatus   `json:"status"`
}

// TaskPatch lists the fields an update changes. Nil fields are left alone.
type TaskPatch struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	AssignedTo  *string              `json:"assignedTo,omitempty"`
	Deadline    *string              `json:"deadline,omitempty"`
	Priority    *models.TaskPriority `json:"priority,omitempty"`
	Status      *models.TaskStatus   `json:"status,omitempty"`
	LastComment *string              `json:"lastComment,omitempty"`
}

// Fields returns the names of the fields the patch sets.
func (p TaskPatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, policy.FieldTitle)
	}
	if p.Description != nil {
		fields = append(fields, policy.FieldDescription)
	}
	if p.AssignedTo != nil {
		fields = append(fields, policy.FieldAssignedTo)
	}
	if p.Deadline != nil {
		fields = append(fields, policy.FieldDeadline)
	}
	if p.Priority != nil {
		fields = append(fields, policy.FieldPriority)
	}
	if p.Status != nil {
		fields = append(fields, policy.FieldStatus)
	}
	if p.LastComment != nil {
		fields = append(fields, policy.FieldLastComment)
	}
	return fields
}

type TaskFilter struct {
	Assignee string
	Status   models.TaskStatus
}

// TaskView is a task as one particular user sees it.
type TaskView struct {
	models.Task
	AllowedActions []policy.Action `json:"allowedActions"`
	AssignedToName string          `json:"assignedToName"`
	AssignedByName string          `json:"assignedByName"`
}

func (s *TaskService) CreateTask(ctx context.Context, actor models.User, req NewTask) (models.Task, error) {
	if !policy.CanCreateTask(actor) {
		logging.Logger.Warnf("Event ID: TASK_CREATE_FORBIDDEN, Description: User %s with role %s may not create tasks", actor.ID, actor.Role)
		return models.Task{}, fmt.Errorf("%w: role %s may not create tasks", ErrForbidden, actor.Role)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Task{}, invalid(policy.FieldTitle, "title is required")
	}
	if err := validateDeadline(req.Deadline); err != nil {
		return models.Task{}, err
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return models.Task{}, invalid(policy.FieldPriority, fmt.Sprintf("unknown priority %q", priority))
	}
	status := req.Status
	if status == "" {
		status = models.StatusNotStarted
	}
	if !status.Valid() {
		return models.Task{}, invalid(policy.FieldStatus, fmt.Sprintf("unknown status %q", status))
	}
	if err := s.checkAssignee(ctx, actor, req.AssignedTo); err != nil {
		return models.Task{}, err
	}

	now := s.now()
	task := models.Task{
		ID:          s.newID(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		AssignedBy:  actor.ID,
		AssignedTo:  req.AssignedTo,
		Deadline:    req.Deadline,
		Priority:    priority,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return models.Task{}, storeError("create task", task.ID, err)
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created by %s and assigned to %s", task.ID, actor.ID, task.AssignedTo)
	return task, nil
}

// UpdateTask applies patch to task id. The creator may change the editable
// fields, the assignee the status fields; touching anything else is
// forbidden and leaves the task as it was.
func (s *TaskService) UpdateTask(ctx context.Context, actor models.User, id string, patch TaskPatch) (models.Task, error) {
	fields := patch.Fields()
	if len(fields) == 0 {
		return models.Task{}, invalid("", "no fields to update")
	}

	current, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, storeError("get task", id, err)
	}
	if !policy.CanEditTask(actor, current) && !policy.CanUpdateStatus(actor, current) {
		logging.Logger.Warnf("Event ID: TASK_UPDATE_FORBIDDEN, Description: User %s is neither creator nor assignee of task %s", actor.ID, id)
		return models.Task{}, fmt.Errorf("%w: not allowed to update task %s", ErrForbidden, id)
	}
	allowed := policy.AllowedFields(actor, current)
	for _, f := range fields {
		if !contains(allowed, f) {
			logging.Logger.Warnf("Event ID: TASK_FIELD_FORBIDDEN, Description: User %s tried to change %s on task %s", actor.ID, f, id)
			return models.Task{}, &ForbiddenFieldError{Field: f}
		}
	}

	updated := current
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.Task{}, invalid(policy.FieldTitle, "title is required")
		}
		updated.Title = title
	}
	if patch.Description != nil {
		updated.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Deadline != nil {
		if err := validateDeadline(*patch.Deadline); err != nil {
			return models.Task{}, err
		}
		updated.Deadline = *patch.Deadline
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return models.Task{}, invalid(policy.FieldPriority, fmt.Sprintf("unknown priority %q", *patch.Priority))
		}
		updated.Priority = *patch.Priority
	}
	if patch.AssignedTo != nil {
		if err := s.checkAssignee(ctx, actor, *patch.AssignedTo); err != nil {
			return models.Task{}, err
		}
		updated.AssignedTo = *patch.AssignedTo
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return models.Task{}, invalid(policy.FieldStatus, fmt.Sprintf("unknown status %q", *patch.Status))
		}
		updated.Status = *patch.Status
	}
	if patch.LastComment != nil {
		comment := strings.TrimSpace(*patch.LastComment)
		if comment == "" {
			updated.LastComment = nil
		} else {
			updated.LastComment = &comment
		}
	}

	updated.UpdatedAt = s.now()
	if updated.UpdatedAt.Before(current.UpdatedAt) {
		updated.UpdatedAt = current.UpdatedAt
	}
	updated.Version = current.Version + 1

	if err := s.tasks.UpdateTask(ctx, updated, current.Version); err != nil {
		return models.Task{}, storeError("update task", id, err)
	}

	logging.Logger.Infof("Event ID: TASK_UPDATED, Description: Task %s updated by %s (fields: %s)", id, actor.ID, strings.Join(fields, ", "))
	return updated, nil
}

// DeleteTask removes task id. Deleting a task that does not exist succeeds.
func (s *TaskService) DeleteTask(ctx context.Context, actor models.User, id string) error {
	task, err := s.tasks.GetTask(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		logging.Logger.Debugf("Event ID: TASK_DELETE_ABSENT, Description: Task %s already absent", id)
		return nil
	}
	if err != nil {
		return storeError("get task", id, err)
	}
	if !policy.CanDeleteTask(actor, task) {
		logging.Logger.Warnf("Event ID: TASK_DELETE_FORBIDDEN, Description: User %s may not delete task %s", actor.ID, id)
		return fmt.Errorf("%w: only the creator may delete task %s", ErrForbidden, id)
	}

	err = s.tasks.DeleteTask(ctx, id)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return storeError("delete task", id, err)
	}
	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted by %s", id, actor.ID)
	return nil
}

// ListTasksForRole returns the tasks actor may see, narrowed by filter and
// sorted most recently updated first.
func (s *TaskService) ListTasksForRole(ctx context.Context, actor models.User, filter TaskFilter) ([]TaskView, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid(policy.FieldStatus, fmt.Sprintf("unknown status %q", filter.Status))
	}

	tasks, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return nil, storeError("list tasks", "", err)
	}

	visible := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if !policy.CanViewTask(actor, t) {
			continue
		}
		if filter.Assignee != "" && t.AssignedTo != filter.Assignee {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		visible = append(visible, t)
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].UpdatedAt.After(visible[j].UpdatedAt)
	})

	names, err := s.userNames(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]TaskView, 0, len(visible))
	for _, t := range visible {
		views = append(views, newTaskView(actor, t, names))
	}
	return views, nil
}

func (s *TaskService) GetTaskView(ctx context.Context, actor models.User, id string) (TaskView, error) {
	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return TaskView{}, storeError("get task", id, err)
	}
	if !policy.CanViewTask(actor, task) {
		return TaskView{}, fmt.Errorf("%w: task %s is not visible to %s", ErrForbidden, id, actor.ID)
	}
	names, err := s.userNames(ctx)
	if err != nil {
		return TaskView{}, err
	}
	return newTaskView(actor, task, names), nil
}

// AssignableUsers lists the users actor may hand a task to.
func (s *TaskService) AssignableUsers(ctx context.Context, actor models.User) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, storeError("list users", "", err)
	}
	out := make([]models.User, 0)
	for _, u := range users {
		if policy.CanAssignTo(actor, u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *TaskService) checkAssignee(ctx context.Context, actor models.User, assigneeID string) error {
	if strings.TrimSpace(assigneeID) == "" {
		return invalid(policy.FieldAssignedTo, "assignee is required")
	}
	assignee, err := s.users.GetUser(ctx, assigneeID)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: user %s", ErrNotFound, assigneeID)
	}
	if err != nil {
		return storeError("get user", assigneeID, err)
	}
	if !policy.CanAssignTo(actor, assignee) {
		return invalid(policy.FieldAssignedTo, fmt.Sprintf("a %s may not assign tasks to a %s", actor.Role, assignee.Role))
	}
	return nil
}

func (s *TaskService) userNames(ctx context.Context) (map[string]string, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, storeError("list users", "", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

func newTaskView(actor models.User, task models.Task, names map[string]string) TaskView {
	return TaskView{
		Task:           task,
		AllowedActions: policy.AllowedActions(actor, task),
		AssignedToName: nameOrUnknown(names, task.AssignedTo),
		AssignedByName: nameOrUnknown(names, task.AssignedBy),
	}
}

func nameOrUnknown(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return UnknownUserName
}

func validateDeadline(deadline string) error {
	if deadline == "" {
		return invalid(policy.FieldDeadline, "deadline is required")
	}
	if _, err := time.Parse(models.DeadlineLayout, deadline); err != nil {
		return invalid(policy.FieldDeadline, "deadline must be a date in YYYY-MM-DD form")
	}
	return nil
}

// storeError maps record-store failures onto the service taxonomy.
func storeError(op, id string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	case errors.Is(err, repositories.ErrConflict):
		logging.Logger.Warnf("Event ID: TASK_UPDATE_CONFLICT, Description: Lost update on %s", id)
		return fmt.Errorf("%w: %s", ErrConflict, id)
	}
	logging.Logger.Errorf("Event ID: STORE_ERROR, Description: %s %s failed: %v", op, id, err)
	return fmt.Errorf("%s: %w", op, err)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
