package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shiled-1/task-sheduler/models"
	"github.com/shiled-1/task-sheduler/services"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

type StatusUpdateRequest struct {
	Status  models.TaskStatus `json:"status"`
	Comment *string           `json:"comment"`
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req services.NewTask
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	task, err := h.service.CreateTask(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	filter := services.TaskFilter{
		Assignee: query.Get("assignee"),
		Status:   models.TaskStatus(query.Get("status")),
	}

	views, err := h.service.ListTasksForRole(r.Context(), user, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetTaskView(r.Context(), user, mux.Vars(r)["taskID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var patch services.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, err)
		return
	}

	task, err := h.service.UpdateTask(r.Context(), user, mux.Vars(r)["taskID"], patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateStatus is the assignee's path: a new status and an optional
// comment. An absent comment clears the previous one.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req StatusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Status == "" {
		writeServiceError(w, &services.ValidationError{Field: "status", Reason: "status is required"})
		return
	}
	comment := ""
	if req.Comment != nil {
		comment = *req.Comment
	}

	task, err := h.service.UpdateTask(r.Context(), user, mux.Vars(r)["taskID"], services.TaskPatch{
		Status:      &req.Status,
		LastComment: &comment,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTask(r.Context(), user, mux.Vars(r)["taskID"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
