// Package repositories is the record store behind the task service: users,
// tasks and chat history, each a collection of records keyed by id.
//
// Business logic talks to the Store interface only. Backends differ in
// durability (memory, local SQLite file, MongoDB, Cassandra for chat) but
// share the same contract, including compare-and-swap on task versions.
package repositories

import (
	"context"
	"errors"
	"io"

	"github.com/shiled-1/task-sheduler/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record was modified concurrently")
	ErrDuplicate = errors.New("record already exists")
)

// Collection names, shared by every backend.
const (
	UsersCollection       = "users"
	TasksCollection       = "tasks"
	ChatHistoryCollection = "chatHistory"
)

type UserStore interface {
	// ListUsers returns users in insertion order.
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	// CreateUser fails with ErrDuplicate when the id or email is taken.
	CreateUser(ctx context.Context, user models.User) error
}

type TaskStore interface {
	// ListTasks returns tasks in insertion order.
	ListTasks(ctx context.Context) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (models.Task, error)
	// CreateTask fails with ErrDuplicate when the id is taken.
	CreateTask(ctx context.Context, task models.Task) error
	// UpdateTask replaces the stored task only if its version still equals
	// expectedVersion; otherwise it returns ErrConflict.
	UpdateTask(ctx context.Context, task models.Task, expectedVersion int64) error
	// DeleteTask returns ErrNotFound when no task has the id.
	DeleteTask(ctx context.Context, id string) error
}

type MessageStore interface {
	AppendMessage(ctx context.Context, msg models.Message) error
	// ListConversation returns the messages exchanged between a and b in
	// either direction, oldest first.
	ListConversation(ctx context.Context, a, b string) ([]models.Message, error)
}

type Store interface {
	UserStore
	TaskStore
	MessageStore
	Close() error
}

type composite struct {
	Store
	messages MessageStore
}

// WithMessages returns base with its chat history served by messages.
// Closing the result closes both.
func WithMessages(base Store, messages MessageStore) Store {
	return &composite{Store: base, messages: messages}
}

func (c *composite) AppendMessage(ctx context.Context, msg models.Message) error {
	return c.messages.AppendMessage(ctx, msg)
}

func (c *composite) ListConversation(ctx context.Context, a, b string) ([]models.Message, error) {
	return c.messages.ListConversation(ctx, a, b)
}

func (c *composite) Close() error {
	err := c.Store.Close()
	if closer, ok := c.messages.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}
