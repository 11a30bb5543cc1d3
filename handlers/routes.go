package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shiled-1/task-sheduler/middleware"
	"github.com/shiled-1/task-sheduler/services"
)

type Services struct {
	Auth  *services.AuthService
	Tasks *services.TaskService
	Chat  *services.ChatService
}

// NewRouter wires every route. The returned handler already carries CORS
// and request logging.
func NewRouter(svc Services) http.Handler {
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Auth, svc.Tasks)
	taskHandler := NewTaskHandler(svc.Tasks)
	chatHandler := NewChatHandler(svc.Chat)

	r := mux.NewRouter()
	r.HandleFunc("/health", Health).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/signup", authHandler.Signup).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.JWTAuthMiddleware(svc.Auth))

	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet)

	api.HandleFunc("/users", userHandler.ListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/assignable", userHandler.AssignableUsers).Methods(http.MethodGet)

	api.HandleFunc("/tasks", taskHandler.ListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}", taskHandler.GetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID}", taskHandler.UpdateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{taskID}", taskHandler.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskID}/status", taskHandler.UpdateStatus).Methods(http.MethodPost)

	api.HandleFunc("/chat/contacts", chatHandler.Contacts).Methods(http.MethodGet)
	api.HandleFunc("/chat/{userID}", chatHandler.GetConversation).Methods(http.MethodGet)
	api.HandleFunc("/chat/{userID}", chatHandler.SendMessage).Methods(http.MethodPost)

	return middleware.RequestLogger(middleware.EnableCORS(r))
}
