package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/birthapp/birthapp-go/internal/apperr"
	"github.com/birthapp/birthapp-go/internal/kv"
	"github.com/birthapp/birthapp-go/internal/model"
)

func TestUserRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(kv.NewMemory())

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty store, got %d users", n)
	}

	user := &model.User{Username: "ada", Hash: "h", Salt: "s", Role: model.RoleAdmin}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Get(ctx, "ada")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *got != *user {
		t.Fatalf("got %+v, want %+v", got, user)
	}

	if _, err := repo.Get(ctx, "bob"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(kv.NewMemory())

	if err := repo.Create(ctx, &model.User{Username: "ada", Role: model.RoleUser}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := repo.Create(ctx, &model.User{Username: "ada", Role: model.RoleAdmin})
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate should classify as conflict, got %v", err)
	}

	got, _ := repo.Get(ctx, "ada")
	if got.Role != model.RoleUser {
		t.Fatal("existing user must not be overwritten")
	}
}

func TestUserRepositoryConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(kv.NewMemory())

	var wg sync.WaitGroup
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := repo.Create(ctx, &model.User{Username: name, Role: model.RoleUser}); err != nil {
				t.Errorf("Create %s: %v", name, err)
			}
		}(name)
	}
	wg.Wait()

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != len(names) {
		t.Fatalf("expected %d users, got %d", len(names), n)
	}
}

func TestUserRepositoryStoredShape(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	repo := NewUserRepository(store)

	if err := repo.Create(ctx, &model.User{Username: "ada", Hash: "h", Salt: "s", Role: "admin"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	raw, ok, err := store.Get(ctx, UsersKey)
	if err != nil || !ok {
		t.Fatalf("users document missing: ok=%v err=%v", ok, err)
	}
	want := `{"ada":{"hash":"h","salt":"s","role":"admin"}}`
	if raw != want {
		t.Fatalf("stored %s, want %s", raw, want)
	}
}

func TestUserRepositoryCorruptDocument(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	_ = store.Set(ctx, UsersKey, "not json")

	if _, err := NewUserRepository(store).All(ctx); err == nil {
		t.Fatal("expected decode error")
	}
}
