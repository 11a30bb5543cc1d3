package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/shiled-1/task-sheduler/models"
)

// MemoryStore keeps every collection in process memory. It is the default
// backend and the one tests run against.
type MemoryStore struct {
	mu       sync.RWMutex
	users    []models.User
	tasks    []models.Task
	messages []models.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make([]models.User, 0, 16),
		tasks:    make([]models.Task, 0, 16),
		messages: make([]models.Message, 0, 64),
	}
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *MemoryStore) CreateUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == user.ID || u.Email == user.Email {
			return ErrDuplicate
		}
	}
	s.users = append(s.users, user)
	return nil
}

func (s *MemoryStore) ListTasks(ctx context.Context) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out, nil
}

func (s *MemoryStore) GetTask(ctx context.Context, id string) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.taskIndex(id); i >= 0 {
		return s.tasks[i], nil
	}
	return models.Task{}, ErrNotFound
}

func (s *MemoryStore) CreateTask(ctx context.Context, task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskIndex(task.ID) >= 0 {
		return ErrDuplicate
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *MemoryStore) UpdateTask(ctx context.Context, task models.Task, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.taskIndex(task.ID)
	if i < 0 {
		return ErrNotFound
	}
	if s.tasks[i].Version != expectedVersion {
		return ErrConflict
	}
	s.tasks[i] = task
	return nil
}

func (s *MemoryStore) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.taskIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *MemoryStore) ListConversation(ctx context.Context, a, b string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return conversation(s.messages, a, b), nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) taskIndex(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// conversation filters history down to the a/b pair, oldest first. Messages
// with equal timestamps keep their history order.
func conversation(history []models.Message, a, b string) []models.Message {
	out := make([]models.Message, 0)
	for _, m := range history {
		if m.Between(a, b) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
