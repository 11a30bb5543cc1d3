package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shiled-1/task-sheduler/logging"
	"github.com/shiled-1/task-sheduler/models"
	"github.com/shiled-1/task-sheduler/repositories"
)

// ChatService carries direct messages between users. Any signed-in user
// may write to any other user.
type ChatService struct {
	users    repositories.UserStore
	messages repositories.MessageStore
	now      func() time.Time
	newID    func() string
}

func NewChatService(users repositories.UserStore, messages repositories.MessageStore) *ChatService {
	return &ChatService{
		users:    users,
		messages: messages,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *ChatService) WithClock(now func() time.Time) *ChatService {
	s.now = now
	return s
}

type Contact struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	RoleLabel string      `json:"roleLabel"`
}

// GetConversation returns the messages between a and b, oldest first.
func (s *ChatService) GetConversation(ctx context.Context, a, b string) ([]models.Message, error) {
	if err := s.requireUser(ctx, b); err != nil {
		return nil, err
	}
	messages, err := s.messages.ListConversation(ctx, a, b)
	if err != nil {
		logging.Logger.Errorf("Event ID: CHAT_HISTORY_FAILED, Description: Loading conversation %s failed: %v", models.ConversationKey(a, b), err)
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return messages, nil
}

func (s *ChatService) SendMessage(ctx context.Context, sender models.User, receiverID, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, invalid("text", "message text is required")
	}
	if receiverID == sender.ID {
		return models.Message{}, invalid("receiverId", "cannot send a message to yourself")
	}
	if err := s.requireUser(ctx, receiverID); err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:         s.newID(),
		SenderID:   sender.ID,
		ReceiverID: receiverID,
		Text:       text,
		Timestamp:  s.now(),
	}
	if err := s.messages.AppendMessage(ctx, msg); err != nil {
		logging.Logger.Errorf("Event ID: CHAT_SEND_FAILED, Description: Storing message from %s to %s failed: %v", sender.ID, receiverID, err)
		return models.Message{}, fmt.Errorf("append message: %w", err)
	}
	logging.Logger.Debugf("Event ID: CHAT_MESSAGE_SENT, Description: Message %s sent from %s to %s", msg.ID, sender.ID, receiverID)
	return msg, nil
}

// Contacts lists everyone actor can talk to, which is every other user.
func (s *ChatService) Contacts(ctx context.Context, actor models.User) ([]Contact, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, storeError("list users", "", err)
	}
	contacts := make([]Contact, 0, len(users))
	for _, u := range users {
		if u.ID == actor.ID {
			continue
		}
		contacts = append(contacts, Contact{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Role:      u.Role,
			RoleLabel: u.Role.Label(),
		})
	}
	return contacts, nil
}

func (s *ChatService) requireUser(ctx context.Context, id string) error {
	_, err := s.users.GetUser(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	if err != nil {
		return storeError("get user", id, err)
	}
	return nil
}
