package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/birthapp/birthapp-go/internal/apperr"
	"github.com/birthapp/birthapp-go/internal/kv"
	"github.com/birthapp/birthapp-go/internal/model"
)

// UsersKey holds every account as one JSON object keyed by username.
const UsersKey = "users"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = fmt.Errorf("username already exists: %w", apperr.ErrConflict)
)

// UserRepository handles user persistence on top of a KV store.
type UserRepository struct {
	store kv.Store
	// mu serializes read-modify-write of the users document within this
	// process. Separate processes sharing a store can still race.
	mu sync.Mutex
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(store kv.Store) *UserRepository {
	return &UserRepository{store: store}
}

// All returns every stored user keyed by username.
func (r *UserRepository) All(ctx context.Context) (map[string]model.User, error) {
	users := map[string]model.User{}
	if _, err := kv.GetJSON(ctx, r.store, UsersKey, &users); err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	if users == nil {
		users = map[string]model.User{}
	}
	for name, u := range users {
		u.Username = name
		users[name] = u
	}
	return users, nil
}

// Get retrieves a user by username.
func (r *UserRepository) Get(ctx context.Context, username string) (*model.User, error) {
	users, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	u, ok := users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// Create stores a new user, failing with ErrDuplicateUser if the name is taken.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.All(ctx)
	if err != nil {
		return err
	}
	if _, exists := users[user.Username]; exists {
		return ErrDuplicateUser
	}

	users[user.Username] = *user
	if err := kv.SetJSON(ctx, r.store, UsersKey, users); err != nil {
		return fmt.Errorf("saving users: %w", err)
	}
	return nil
}

// Count returns the number of stored users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	users, err := r.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}
