package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shiled-1/task-sheduler/logging"
	"github.com/shiled-1/task-sheduler/models"
)

// NewBreaker builds a circuit breaker that opens after maxFailures
// consecutive backend failures and probes again after timeout. Domain
// outcomes (not found, conflict, duplicate) and caller cancellation do not
// count as failures.
func NewBreaker(name string, maxFailures uint32, timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
		IsSuccessful: isBackendHealthy,
	})
}

func isBackendHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, context.Canceled)
}

// BreakerStore guards a remote Store. While the breaker is open every call
// fails fast with gobreaker.ErrOpenState.
type BreakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerStore(inner Store, cb *gobreaker.CircuitBreaker) *BreakerStore {
	return &BreakerStore{inner: inner, cb: cb}
}

func guard[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	// res is nil when the breaker rejected the call.
	v, _ := res.(T)
	return v, err
}

func guardErr(cb *gobreaker.CircuitBreaker, fn func() error) error {
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func (s *BreakerStore) ListUsers(ctx context.Context) ([]models.User, error) {
	return guard(s.cb, func() ([]models.User, error) { return s.inner.ListUsers(ctx) })
}

func (s *BreakerStore) GetUser(ctx context.Context, id string) (models.User, error) {
	return guard(s.cb, func() (models.User, error) { return s.inner.GetUser(ctx, id) })
}

func (s *BreakerStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return guard(s.cb, func() (models.User, error) { return s.inner.GetUserByEmail(ctx, email) })
}

func (s *BreakerStore) CreateUser(ctx context.Context, user models.User) error {
	return guardErr(s.cb, func() error { return s.inner.CreateUser(ctx, user) })
}

func (s *BreakerStore) ListTasks(ctx context.Context) ([]models.Task, error) {
	return guard(s.cb, func() ([]models.Task, error) { return s.inner.ListTasks(ctx) })
}

func (s *BreakerStore) GetTask(ctx context.Context, id string) (models.Task, error) {
	return guard(s.cb, func() (models.Task, error) { return s.inner.GetTask(ctx, id) })
}

func (s *BreakerStore) CreateTask(ctx context.Context, task models.Task) error {
	return guardErr(s.cb, func() error { return s.inner.CreateTask(ctx, task) })
}

func (s *BreakerStore) UpdateTask(ctx context.Context, task models.Task, expectedVersion int64) error {
	return guardErr(s.cb, func() error { return s.inner.UpdateTask(ctx, task, expectedVersion) })
}

func (s *BreakerStore) DeleteTask(ctx context.Context, id string) error {
	return guardErr(s.cb, func() error { return s.inner.DeleteTask(ctx, id) })
}

func (s *BreakerStore) AppendMessage(ctx context.Context, msg models.Message) error {
	return guardErr(s.cb, func() error { return s.inner.AppendMessage(ctx, msg) })
}

func (s *BreakerStore) ListConversation(ctx context.Context, a, b string) ([]models.Message, error) {
	return guard(s.cb, func() ([]models.Message, error) { return s.inner.ListConversation(ctx, a, b) })
}

func (s *BreakerStore) Close() error { return s.inner.Close() }

// BreakerMessages guards a remote MessageStore.
type BreakerMessages struct {
	inner MessageStore
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerMessages(inner MessageStore, cb *gobreaker.CircuitBreaker) *BreakerMessages {
	return &BreakerMessages{inner: inner, cb: cb}
}

func (m *BreakerMessages) AppendMessage(ctx context.Context, msg models.Message) error {
	return guardErr(m.cb, func() error { return m.inner.AppendMessage(ctx, msg) })
}

func (m *BreakerMessages) ListConversation(ctx context.Context, a, b string) ([]models.Message, error) {
	return guard(m.cb, func() ([]models.Message, error) { return m.inner.ListConversation(ctx, a, b) })
}

func (m *BreakerMessages) Close() error {
	if closer, ok := m.inner.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
