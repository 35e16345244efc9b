// Package auth manages staff accounts and login sessions. Passwords are
// bcrypt-hashed; sessions are opaque server-side tokens with a fixed
// lifetime, matching the section-login model of the legacy system.
package auth

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trustedfriends/loanbook/pkg/models"
	"github.com/trustedfriends/loanbook/pkg/store"
	"golang.org/x/crypto/bcrypt"
)

// adminUsername is the seeded account that can never be deleted.
const adminUsername = "admin"

type session struct {
	username  string
	expiresAt time.Time
}

// Service verifies credentials against storage and tracks active sessions
// in memory.
type Service struct {
	storage    store.Storage
	sessionTTL time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]session
}

// NewService creates an auth Service. sessionTTL bounds how long a login
// token stays valid.
func NewService(s store.Storage, sessionTTL time.Duration) *Service {
	return &Service{
		storage:    s,
		sessionTTL: sessionTTL,
		now:        time.Now,
		sessions:   make(map[string]session),
	}
}

// SetClock replaces the wall clock used for session expiry.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateUser registers a new staff account with a bcrypt-hashed password.
func (s *Service) CreateUser(username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.storage.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the credentials and returns a fresh session token.
func (s *Service) Login(username, password string) (string, error) {
	user, err := s.storage.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = session{
		username:  user.Username,
		expiresAt: s.now().Add(s.sessionTTL),
	}
	s.mu.Unlock()

	return token, nil
}

// Validate reports whether the token belongs to a live session and, if so,
// which user it authenticates. Expired sessions are dropped on sight.
func (s *Service) Validate(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return "", false
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return "", false
	}
	return sess.username, true
}

// Logout revokes a session token.
func (s *Service) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Users lists all staff accounts.
func (s *Service) Users() ([]*models.User, error) {
	return s.storage.GetAllUsers()
}

// DeleteUser removes a staff account. The seeded admin account and the
// caller's own account are protected.
func (s *Service) DeleteUser(id int64, currentUsername string) error {
	users, err := s.storage.GetAllUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.ID != id {
			continue
		}
		if u.Username == adminUsername {
			return fmt.Errorf("cannot delete the admin account")
		}
		if u.Username == currentUsername {
			return fmt.Errorf("cannot delete your own account")
		}
		return s.storage.DeleteUser(id)
	}
	return fmt.Errorf("user not found")
}
