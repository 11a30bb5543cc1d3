package repositories

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shiled-1/task-sheduler/logging"
	"github.com/shiled-1/task-sheduler/models"
)

//go:embed seed.yaml
var defaultSeed []byte

type SeedUser struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name"`
	Email    string      `yaml:"email"`
	Password string      `yaml:"password"`
	Role     models.Role `yaml:"role"`
}

type SeedTask struct {
	ID          string              `yaml:"id"`
	Title       string              `yaml:"title"`
	Description string              `yaml:"description"`
	AssignedBy  string              `yaml:"assignedBy"`
	AssignedTo  string              `yaml:"assignedTo"`
	Deadline    string              `yaml:"deadline"`
	Priority    models.TaskPriority `yaml:"priority"`
	Status      models.TaskStatus   `yaml:"status"`
}

type SeedData struct {
	Users []SeedUser `yaml:"users"`
	Tasks []SeedTask `yaml:"tasks"`
}

// SeedResult counts the records a Seed call actually inserted.
type SeedResult struct {
	Users int
	Tasks int
}

// DefaultSeed returns the bundled first-run data: one admin, one manager,
// two members and two tasks.
func DefaultSeed() (SeedData, error) {
	return ParseSeed(defaultSeed)
}

func ParseSeed(data []byte) (SeedData, error) {
	var seed SeedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return SeedData{}, fmt.Errorf("seed: %w", err)
	}
	for _, u := range seed.Users {
		if u.ID == "" || u.Email == "" || !u.Role.Valid() {
			return SeedData{}, fmt.Errorf("seed: invalid user %q", u.ID)
		}
	}
	for _, t := range seed.Tasks {
		if t.ID == "" || !t.Status.Valid() || !t.Priority.Valid() {
			return SeedData{}, fmt.Errorf("seed: invalid task %q", t.ID)
		}
	}
	return seed, nil
}

// Seed inserts every seed record that is not already present. Existing
// records, matched by id (or email for users), are left untouched, so
// calling Seed on every start is safe.
func Seed(ctx context.Context, store Store, seed SeedData, hash func(string) (string, error), now time.Time) (SeedResult, error) {
	var res SeedResult
	for _, su := range seed.Users {
		if _, err := store.GetUser(ctx, su.ID); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return res, fmt.Errorf("seed: user %s: %w", su.ID, err)
		}
		passwordHash, err := hash(su.Password)
		if err != nil {
			return res, fmt.Errorf("seed: hash password for %s: %w", su.ID, err)
		}
		err = store.CreateUser(ctx, models.User{
			ID:           su.ID,
			Name:         su.Name,
			Email:        su.Email,
			Role:         su.Role,
			PasswordHash: passwordHash,
		})
		if errors.Is(err, ErrDuplicate) {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed: user %s: %w", su.ID, err)
		}
		res.Users++
	}

	for _, st := range seed.Tasks {
		if _, err := store.GetTask(ctx, st.ID); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return res, fmt.Errorf("seed: task %s: %w", st.ID, err)
		}
		err := store.CreateTask(ctx, models.Task{
			ID:          st.ID,
			Title:       st.Title,
			Description: st.Description,
			AssignedBy:  st.AssignedBy,
			AssignedTo:  st.AssignedTo,
			Deadline:    st.Deadline,
			Priority:    st.Priority,
			Status:      st.Status,
			CreatedAt:   now,
			UpdatedAt:   now,
			Version:     1,
		})
		if errors.Is(err, ErrDuplicate) {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed: task %s: %w", st.ID, err)
		}
		res.Tasks++
	}

	if res.Users > 0 || res.Tasks > 0 {
		logging.Logger.Infof("Event ID: SEED_APPLIED, Description: Seeded %d users and %d tasks", res.Users, res.Tasks)
	}
	return res, nil
}
