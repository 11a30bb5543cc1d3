// Package policy decides which task operations a user may perform and
// which tasks they may see. Every function here is pure: callers fetch the
// records, policy only answers yes or no.
package policy

import "github.com/shiled-1/task-sheduler/models"

type Action string

const (
	ActionEdit         Action = "edit"
	ActionDelete       Action = "delete"
	ActionUpdateStatus Action = "update-status"
	ActionViewOnly     Action = "view-only"
)

// Task fields, named as they appear in requests.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldAssignedTo  = "assignedTo"
	FieldDeadline    = "deadline"
	FieldPriority    = "priority"
	FieldStatus      = "status"
	FieldLastComment = "lastComment"
)

// EditableFields may only be changed by the task's creator.
var EditableFields = []string{FieldTitle, FieldDescription, FieldAssignedTo, FieldDeadline, FieldPriority}

// StatusFields may only be changed by the task's assignee.
var StatusFields = []string{FieldStatus, FieldLastComment}

var assignable = map[models.Role][]models.Role{
	models.RoleAdmin:   {models.RoleManager, models.RoleMember},
	models.RoleManager: {models.RoleMember},
}

func CanCreateTask(user models.User) bool {
	return user.Role == models.RoleAdmin || user.Role == models.RoleManager
}

func CanEditTask(user models.User, task models.Task) bool {
	return user.ID != "" && user.ID == task.AssignedBy
}

func CanDeleteTask(user models.User, task models.Task) bool {
	return CanEditTask(user, task)
}

func CanUpdateStatus(user models.User, task models.Task) bool {
	return user.ID != "" && user.ID == task.AssignedTo
}

func CanViewTask(user models.User, task models.Task) bool {
	switch user.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager:
		return CanEditTask(user, task) || CanUpdateStatus(user, task)
	case models.RoleMember:
		return CanUpdateStatus(user, task)
	}
	return false
}

// AssignableRoles returns the roles a creator with the given role may
// assign tasks to. Members get nil.
func AssignableRoles(role models.Role) []models.Role {
	return assignable[role]
}

// CanAssignTo reports whether creator may hand a task to target. Nobody
// may assign a task to themselves.
func CanAssignTo(creator, target models.User) bool {
	if creator.ID == target.ID {
		return false
	}
	for _, r := range assignable[creator.Role] {
		if r == target.Role {
			return true
		}
	}
	return false
}

// AllowedActions is the action set the rendering layer offers for task.
// It is empty when user cannot see the task at all.
func AllowedActions(user models.User, task models.Task) []Action {
	if !CanViewTask(user, task) {
		return nil
	}
	var actions []Action
	if CanEditTask(user, task) {
		actions = append(actions, ActionEdit)
	}
	if CanDeleteTask(user, task) {
		actions = append(actions, ActionDelete)
	}
	if CanUpdateStatus(user, task) {
		actions = append(actions, ActionUpdateStatus)
	}
	if len(actions) == 0 {
		actions = append(actions, ActionViewOnly)
	}
	return actions
}

// AllowedFields returns the patchable fields for user on task, in
// EditableFields then StatusFields order.
func AllowedFields(user models.User, task models.Task) []string {
	var fields []string
	if CanEditTask(user, task) {
		fields = append(fields, EditableFields...)
	}
	if CanUpdateStatus(user, task) {
		fields = append(fields, StatusFields...)
	}
	return fields
}
