package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sitedock/sitedock"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
	minPasswordLen = 8
)

// Service handles account registration, login and account lifecycle.
type Service struct {
	users  sitedock.UserRepo
	sites  sitedock.SiteRepo
	tokens *TokenService
}

func NewService(users sitedock.UserRepo, sites sitedock.SiteRepo, tokens *TokenService) *Service {
	return &Service{users: users, sites: sites, tokens: tokens}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (sitedock.User, error) {
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return sitedock.User{}, fmt.Errorf("register: username length: %w", sitedock.ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return sitedock.User{}, fmt.Errorf("register: password too short: %w", sitedock.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return sitedock.User{}, fmt.Errorf("register: hash password: %w", err)
	}

	user := sitedock.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return sitedock.User{}, fmt.Errorf("register: %w", err)
	}
	return user, nil
}

// Login checks credentials and returns a signed session token with the
// authenticated user. Unknown usernames and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (string, sitedock.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sitedock.ErrNotFound) {
			return "", sitedock.User{}, fmt.Errorf("login: %w", sitedock.ErrUnauthorized)
		}
		return "", sitedock.User{}, fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", sitedock.User{}, fmt.Errorf("login: %w", sitedock.ErrUnauthorized)
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return "", sitedock.User{}, fmt.Errorf("login: %w", err)
	}
	return token, user, nil
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (sitedock.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return sitedock.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateUsername changes the account's username. A username already held by
// another account surfaces as ErrAlreadyExists. Tokens issued before the
// change stay valid: they are keyed on the user id, not the username.
func (s *Service) UpdateUsername(ctx context.Context, id uuid.UUID, username string) (sitedock.User, error) {
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return sitedock.User{}, fmt.Errorf("update username: username length: %w", sitedock.ErrInvalidInput)
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		return sitedock.User{}, fmt.Errorf("update username: %w", err)
	}

	user.Username = username
	if err := s.users.Update(ctx, user); err != nil {
		return sitedock.User{}, fmt.Errorf("update username: %w", err)
	}
	return user, nil
}

// DeleteAccount removes the account. Deletion is refused with
// ErrAccountNotEmpty while the user still owns sites, so site records never
// point at a vanished owner.
func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	owned, err := s.sites.ListByOwner(ctx, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if len(owned) > 0 {
		return fmt.Errorf("delete account: %w", sitedock.ErrAccountNotEmpty)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
