package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/birthapp/birthapp-go/internal/apperr"
	"github.com/birthapp/birthapp-go/internal/crypto"
	"github.com/birthapp/birthapp-go/internal/model"
	"github.com/birthapp/birthapp-go/internal/repository"
)

// AdminUsername is the only account the initial password can bootstrap.
const AdminUsername = "admin"

const maxUsernameLength = 64

var (
	ErrInvalidCredentials = fmt.Errorf("invalid username or password: %w", apperr.ErrUnauthorized)
	ErrInvalidInvite      = fmt.Errorf("invite is invalid or already used: %w", apperr.ErrForbidden)
	ErrUsernameRequired   = apperr.Invalid("username", "is required")
	ErrUsernameInvalid    = apperr.Invalid("username", "must be at most 64 characters of letters, digits, '.', '_' or '-'")
	ErrPasswordRequired   = apperr.Invalid("password", "is required")
	ErrUsernameTaken      = fmt.Errorf("username already taken: %w", apperr.ErrConflict)
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// AuthService handles accounts, invites and sessions.
type AuthService struct {
	users         *repository.UserRepository
	invites       *repository.InviteRepository
	tokens        *crypto.TokenService
	adminPassword string
	now           func() time.Time

	dummyOnce sync.Once
	dummyHash string
	dummySalt string
}

// NewAuthService creates a new AuthService. adminPassword may be empty, which
// disables admin bootstrap.
func NewAuthService(users *repository.UserRepository, invites *repository.InviteRepository, tokens *crypto.TokenService, adminPassword string) *AuthService {
	return &AuthService{
		users:         users,
		invites:       invites,
		tokens:        tokens,
		adminPassword: adminPassword,
		now:           time.Now,
	}
}

// CreateUser hashes password and stores a new account.
func (s *AuthService) CreateUser(ctx context.Context, username, password, role string) (*model.User, error) {
	hash, salt, err := crypto.HashPassword(password, "")
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: username,
		Hash:     hash,
		Salt:     salt,
		Role:     model.NormalizeRole(role),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// Authenticate checks a username and password. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.Get(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		s.burnHash(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !crypto.VerifyPassword(password, user.Hash, user.Salt) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// burnHash runs one derivation so a missing user costs about as much as a
// wrong password.
func (s *AuthService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, s.dummySalt, _ = crypto.HashPassword("birthapp-dummy-password", "")
	})
	crypto.VerifyPassword(password, s.dummyHash, s.dummySalt)
}

// CreateInvite mints a one-time invite for role.
func (s *AuthService) CreateInvite(ctx context.Context, role string) (*model.Invite, error) {
	token, err := crypto.NewInviteCode()
	if err != nil {
		return nil, fmt.Errorf("generating invite: %w", err)
	}

	inv := &model.Invite{
		Token:     token,
		Role:      model.NormalizeRole(role),
		CreatedAt: s.now().Unix(),
	}
	if err := s.invites.Create(ctx, inv); err != nil {
		return nil, err
	}

	slog.Info("invite created", "role", inv.Role)
	return inv, nil
}

// ConsumeInvite redeems token. It returns nil when the token is unknown or was
// already used; concurrent callers get at most one invite.
func (s *AuthService) ConsumeInvite(ctx context.Context, token string) (*model.Invite, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return s.invites.Consume(ctx, token)
}

// BootstrapAdminIfEmpty creates the admin account when no users exist and the
// supplied credentials match the configured initial password.
func (s *AuthService) BootstrapAdminIfEmpty(ctx context.Context, username, password string) (bool, error) {
	if s.adminPassword == "" || username != AdminUsername {
		return false, nil
	}

	n, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
		return false, nil
	}

	if _, err := s.CreateUser(ctx, AdminUsername, password, model.RoleAdmin); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return false, nil
		}
		return false, err
	}

	slog.Info("bootstrapped admin account")
	return true, nil
}

// Login authenticates the caller and issues a session token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	if username == "" || password == "" {
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	if username == AdminUsername {
		if _, err := s.BootstrapAdminIfEmpty(ctx, username, password); err != nil {
			slog.Warn("admin bootstrap failed", "error", err)
		}
	}

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return model.AuthResponse{}, err
	}

	return s.session(user)
}

// Register redeems an invite and creates an account with the invite's role.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return model.AuthResponse{}, ErrUsernameRequired
	}
	if len(username) > maxUsernameLength || !usernamePattern.MatchString(username) {
		return model.AuthResponse{}, ErrUsernameInvalid
	}
	password := strings.TrimSpace(req.Password)
	if password == "" {
		return model.AuthResponse{}, ErrPasswordRequired
	}

	// Check before burning the invite; Create still guards the race.
	if _, err := s.users.Get(ctx, username); err == nil {
		return model.AuthResponse{}, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return model.AuthResponse{}, err
	}

	inv, err := s.ConsumeInvite(ctx, req.Token)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if inv == nil {
		return model.AuthResponse{}, ErrInvalidInvite
	}

	user, err := s.CreateUser(ctx, username, password, inv.Role)
	if err != nil {
		// The account was not created, so hand the invite back.
		if restoreErr := s.invites.Create(context.WithoutCancel(ctx), inv); restoreErr != nil {
			slog.Warn("invite restore failed", "error", restoreErr)
		}
		return model.AuthResponse{}, err
	}

	slog.Info("user registered", "username", user.Username, "role", user.Role)
	return s.session(user)
}

// Me returns the account behind a verified session subject.
func (s *AuthService) Me(ctx context.Context, username string) (model.UserResponse, error) {
	user, err := s.users.Get(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, fmt.Errorf("session user %q no longer exists: %w", username, apperr.ErrUnauthorized)
		}
		return model.UserResponse{}, err
	}
	return model.UserResponse{Username: user.Username, Role: user.Role}, nil
}

func (s *AuthService) session(user *model.User) (model.AuthResponse, error) {
	token, err := s.tokens.Issue(user.Username, user.Role)
	if err != nil {
		return model.AuthResponse{}, err
	}

	return model.AuthResponse{
		OK:       true,
		Username: user.Username,
		Role:     user.Role,
		Token:    token,
	}, nil
}
