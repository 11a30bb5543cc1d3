package handlers

import (
	"net/http"

	"github.com/shiled-1/task-sheduler/services"
)

type UserHandler struct {
	AuthService *services.AuthService
	TaskService *services.TaskService
}

func NewUserHandler(auth *services.AuthService, tasks *services.TaskService) *UserHandler {
	return &UserHandler{AuthService: auth, TaskService: tasks}
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.AuthService.AllUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// AssignableUsers feeds the assignee picker of the task form.
func (h *UserHandler) AssignableUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	users, err := h.TaskService.AssignableUsers(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
