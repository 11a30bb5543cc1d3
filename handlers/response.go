package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shiled-1/task-sheduler/logging"
	"github.com/shiled-1/task-sheduler/middleware"
	"github.com/shiled-1/task-sheduler/models"
	"github.com/shiled-1/task-sheduler/services"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: Failed to encode response: %v", err)
	}
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	var status int
	var verr *services.ValidationError
	var ferr *services.ForbiddenFieldError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp.Error = verr.Reason
		resp.Field = verr.Field
	case errors.As(err, &ferr):
		status = http.StatusForbidden
		resp.Field = ferr.Field
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
		logging.Logger.Errorf("Event ID: INTERNAL_ERROR, Description: %v", err)
		resp.Error = "internal server error"
	}
	writeJSON(w, status, resp)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &services.ValidationError{Reason: fmt.Sprintf("invalid request body: %v", err)}
	}
	return nil
}

// currentUser fetches the principal placed on the request by the auth
// middleware. Routes without it are a wiring bug, answered with 401.
func currentUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not signed in"})
		return models.User{}, false
	}
	return user, true
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
