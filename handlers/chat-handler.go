package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shiled-1/task-sheduler/services"
)

type ChatHandler struct {
	service *services.ChatService
}

func NewChatHandler(service *services.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

func (h *ChatHandler) Contacts(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	contacts, err := h.service.Contacts(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	messages, err := h.service.GetConversation(r.Context(), user.ID, mux.Vars(r)["userID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	msg, err := h.service.SendMessage(r.Context(), user, mux.Vars(r)["userID"], req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
