package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/shiled-1/task-sheduler/models"
)

func plainHash(password string) (string, error) { return "hashed:" + password, nil }

func TestDefaultSeed(t *testing.T) {
	seed, err := DefaultSeed()
	if err != nil {
		t.Fatalf("DefaultSeed: %v", err)
	}
	if len(seed.Users) != 4 || len(seed.Tasks) != 2 {
		t.Fatalf("seed has %d users and %d tasks", len(seed.Users), len(seed.Tasks))
	}
	roles := map[models.Role]int{}
	for _, u := range seed.Users {
		roles[u.Role]++
	}
	if roles[models.RoleAdmin] != 1 || roles[models.RoleManager] != 1 || roles[models.RoleMember] != 2 {
		t.Fatalf("seed roles = %v", roles)
	}
}

func TestParseSeedRejectsInvalidRecords(t *testing.T) {
	bad := []string{
		"users:\n  - id: \"1\"\n    email: a@example.com\n    role: owner\n",
		"tasks:\n  - id: \"1\"\n    status: done\n    priority: high\n",
		"users: [",
	}
	for _, doc := range bad {
		if _, err := ParseSeed([]byte(doc)); err == nil {
			t.Fatalf("ParseSeed(%q) succeeded", doc)
		}
	}
}

func TestSeedIsCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed, err := DefaultSeed()
	if err != nil {
		t.Fatalf("DefaultSeed: %v", err)
	}
	now := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)

	res, err := Seed(ctx, store, seed, plainHash, now)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if res.Users != 4 || res.Tasks != 2 {
		t.Fatalf("first seed inserted %+v", res)
	}

	user, err := store.GetUser(ctx, "1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.PasswordHash != "hashed:admin123" {
		t.Fatalf("password hash = %q", user.PasswordHash)
	}
	task, err := store.GetTask(ctx, "2")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Status != models.StatusInProgress || task.AssignedTo != "3" || task.Version != 1 {
		t.Fatalf("seed task = %+v", task)
	}
	if !task.CreatedAt.Equal(now) || !task.UpdatedAt.Equal(now) {
		t.Fatalf("seed timestamps = %v/%v", task.CreatedAt, task.UpdatedAt)
	}

	// A record changed after seeding must survive the next start.
	edited := task
	edited.Status = models.StatusCompleted
	edited.Version = 2
	if err := store.UpdateTask(ctx, edited, 1); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	res, err = Seed(ctx, store, seed, plainHash, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if res.Users != 0 || res.Tasks != 0 {
		t.Fatalf("second seed inserted %+v", res)
	}
	task, err = store.GetTask(ctx, "2")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Status != models.StatusCompleted {
		t.Fatalf("seed overwrote an existing task: %+v", task)
	}
	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 4 {
		t.Fatalf("got %d users after reseed", len(users))
	}
}

func TestSeedRestoresDeletedRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed, err := DefaultSeed()
	if err != nil {
		t.Fatalf("DefaultSeed: %v", err)
	}
	if _, err := Seed(ctx, store, seed, plainHash, time.Now()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := store.DeleteTask(ctx, "1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	res, err := Seed(ctx, store, seed, plainHash, time.Now())
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if res.Tasks != 1 || res.Users != 0 {
		t.Fatalf("reseed inserted %+v, want the one missing task", res)
	}
}
