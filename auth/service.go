package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"cravings/common"
	"cravings/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// Session is an authenticated sign-in. Sessions live server-side keyed
// by an opaque token; the HTTP layer carries the token in a cookie.
type Session struct {
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Service resolves sessions and roles against the profiles table. Every
// failure path resolves to "not admin" rather than blocking callers.
type Service struct {
	db  *gorm.DB
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	subs     map[int]func(*Session)
	nextSub  int
}

func NewService(db *gorm.DB, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{
		db:       db,
		ttl:      ttl,
		sessions: make(map[string]*Session),
		subs:     make(map[int]func(*Session)),
	}
}

// SignIn verifies credentials and issues a fresh session.
func (s *Service) SignIn(email, password string) (*Session, error) {
	var profile models.Profile
	if err := s.db.Where("email = ?", email).First(&profile).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	session := &Session{
		Token:     uuid.NewString(),
		UserID:    profile.ID,
		Email:     profile.Email,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	s.notify(session)
	return session, nil
}

func (s *Service) SignOut(token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()

	s.notify(nil)
	return nil
}

// GetCurrentSession returns the live session for a token, or (nil, nil)
// when there is none. An expired session is removed and reported as
// absent, not as an error.
func (s *Service) GetCurrentSession(token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	s.mu.Lock()
	session, ok := s.sessions[token]
	if ok && session.Expired() {
		delete(s.sessions, token)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return session, nil
}

// GetRole resolves the role for a user id. A missing profile row is
// normal steady state and resolves to "user".
func (s *Service) GetRole(userID string) (string, error) {
	var profile models.Profile
	err := s.db.Where("id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "user", nil
	}
	if err != nil {
		return "user", err
	}
	return profile.Role, nil
}

// IsAdmin re-checks admin status for a token against the profiles table,
// independently of any cached view. Any failure resolves to false.
func (s *Service) IsAdmin(token string) bool {
	session, err := s.GetCurrentSession(token)
	if err != nil || session == nil {
		return false
	}
	role, err := s.GetRole(session.UserID)
	if err != nil {
		common.Log.Warn().Err(err).Msg("role lookup failed, treating as non-admin")
		return false
	}
	return role == "admin"
}

// OnSessionChange registers a callback fired on sign-in and sign-out.
// The returned func unsubscribes.
func (s *Service) OnSessionChange(fn func(*Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Expire force-expires a session, used when an upstream signal says the
// sign-in is no longer valid.
func (s *Service) Expire(token string) {
	s.mu.Lock()
	if session, ok := s.sessions[token]; ok {
		session.ExpiresAt = time.Now().Add(-time.Second)
	}
	s.mu.Unlock()
}

func (s *Service) notify(session *Session) {
	s.mu.Lock()
	fns := make([]func(*Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(session)
	}
}
