package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/shiled-1/task-sheduler/logging"
	"github.com/shiled-1/task-sheduler/models"
)

// LocalStore persists the three collections in a single SQLite file as one
// JSON array per collection key, the same layout a browser keeps in
// localStorage. Every mutation is a read-modify-write of one key inside an
// IMMEDIATE transaction, so concurrent writers serialize instead of losing
// updates.
type LocalStore struct {
	pool *sqlitex.Pool
	path string
}

const localSchema = `CREATE TABLE IF NOT EXISTS storage (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// localUser carries the password hash, which models.User keeps out of JSON.
type localUser struct {
	models.User
	PasswordHash string `json:"passwordHash"`
}

func NewLocalStore(path string, poolSize int) (*LocalStore, error) {
	if path == "" {
		return nil, fmt.Errorf("local store: path is required")
	}
	if poolSize <= 0 {
		poolSize = 4
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareLocalConn,
	})
	if err != nil {
		return nil, fmt.Errorf("local store: opening %s: %w", path, err)
	}
	logging.Logger.Infof("Event ID: LOCAL_STORE_OPENED, Description: Opened local store at %s (pool size %d)", path, poolSize)
	return &LocalStore{pool: pool, path: path}, nil
}

func prepareLocalConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("local store: %s: %w", pragma, err)
		}
	}
	return sqlitex.ExecuteTransient(conn, localSchema, nil)
}

func (s *LocalStore) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("local store: closing %s: %w", s.path, err)
	}
	return nil
}

// read loads collection key into dst without taking a write lock.
func (s *LocalStore) read(ctx context.Context, key string, dst any) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("local store: take: %w", err)
	}
	defer s.pool.Put(conn)
	return loadKey(conn, key, dst)
}

// mutate loads collection key into dst, lets fn change it and writes it
// back, all in one transaction. If fn fails nothing is written.
func (s *LocalStore) mutate(ctx context.Context, key string, dst any, fn func() error) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("local store: take: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("local store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	if err = loadKey(conn, key, dst); err != nil {
		return err
	}
	if err = fn(); err != nil {
		return err
	}
	return saveKey(conn, key, dst)
}

func loadKey(conn *sqlite.Conn, key string, dst any) error {
	var raw string
	found := false
	err := sqlitex.Execute(conn, "SELECT value FROM storage WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			raw = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("local store: load %s: %w", key, err)
	}
	if !found || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("local store: decode %s: %w", key, err)
	}
	return nil
}

func saveKey(conn *sqlite.Conn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("local store: encode %s: %w", key, err)
	}
	err = sqlitex.Execute(conn,
		"INSERT INTO storage (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		&sqlitex.ExecOptions{Args: []any{key, string(data)}},
	)
	if err != nil {
		return fmt.Errorf("local store: save %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var stored []localUser
	if err := s.read(ctx, UsersCollection, &stored); err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(stored))
	for _, lu := range stored {
		out = append(out, lu.user())
	}
	return out, nil
}

func (s *LocalStore) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.findUser(ctx, func(u models.User) bool { return u.ID == id })
}

func (s *LocalStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, func(u models.User) bool { return u.Email == email })
}

func (s *LocalStore) findUser(ctx context.Context, match func(models.User) bool) (models.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *LocalStore) CreateUser(ctx context.Context, user models.User) error {
	var stored []localUser
	return s.mutate(ctx, UsersCollection, &stored, func() error {
		for _, lu := range stored {
			if lu.ID == user.ID || lu.Email == user.Email {
				return ErrDuplicate
			}
		}
		stored = append(stored, localUser{User: user, PasswordHash: user.PasswordHash})
		return nil
	})
}

func (lu localUser) user() models.User {
	u := lu.User
	u.PasswordHash = lu.PasswordHash
	return u
}

func (s *LocalStore) ListTasks(ctx context.Context) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	if err := s.read(ctx, TasksCollection, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *LocalStore) GetTask(ctx context.Context, id string) (models.Task, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return models.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, ErrNotFound
}

func (s *LocalStore) CreateTask(ctx context.Context, task models.Task) error {
	var tasks []models.Task
	return s.mutate(ctx, TasksCollection, &tasks, func() error {
		for _, t := range tasks {
			if t.ID == task.ID {
				return ErrDuplicate
			}
		}
		tasks = append(tasks, task)
		return nil
	})
}

func (s *LocalStore) UpdateTask(ctx context.Context, task models.Task, expectedVersion int64) error {
	var tasks []models.Task
	return s.mutate(ctx, TasksCollection, &tasks, func() error {
		for i := range tasks {
			if tasks[i].ID != task.ID {
				continue
			}
			if tasks[i].Version != expectedVersion {
				return ErrConflict
			}
			tasks[i] = task
			return nil
		}
		return ErrNotFound
	})
}

func (s *LocalStore) DeleteTask(ctx context.Context, id string) error {
	var tasks []models.Task
	return s.mutate(ctx, TasksCollection, &tasks, func() error {
		for i := range tasks {
			if tasks[i].ID == id {
				tasks = append(tasks[:i], tasks[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

func (s *LocalStore) AppendMessage(ctx context.Context, msg models.Message) error {
	var history []models.Message
	return s.mutate(ctx, ChatHistoryCollection, &history, func() error {
		history = append(history, msg)
		return nil
	})
}

func (s *LocalStore) ListConversation(ctx context.Context, a, b string) ([]models.Message, error) {
	var history []models.Message
	if err := s.read(ctx, ChatHistoryCollection, &history); err != nil {
		return nil, err
	}
	return conversation(history, a, b), nil
}
