package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"drawcal/api/internal/store"
)

var (
	ErrSessionInvalid     = errors.New("session expired or invalid")
	ErrUserNotFound       = errors.New("user not found")
	ErrLoginDisabled      = errors.New("password login is disabled")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

const defaultRole = "user"

type UserStore interface {
	Upsert(ctx context.Context, u store.User) error
	FindByEmail(ctx context.Context, email string) (store.User, error)
	TouchLastLogin(ctx context.Context, email string, at time.Time) error
}

type SessionStore interface {
	Create(ctx context.Context, s store.Session) error
	FindActive(ctx context.Context, userID, token string, now time.Time) (store.Session, error)
	Deactivate(ctx context.Context, userID string, at time.Time) (int64, error)
}

// Service ties users, their sessions and token issuance together. A token is
// only honoured while a matching active session row exists.
type Service struct {
	Users             UserStore
	Sessions          SessionStore
	Issuer            *Issuer
	AllowPasswordless bool
	Logger            *zap.Logger

	now func() time.Time
}

func NewService(users UserStore, sessions SessionStore, issuer *Issuer, allowPasswordless bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Users:             users,
		Sessions:          sessions,
		Issuer:            issuer,
		AllowPasswordless: allowPasswordless,
		Logger:            logger,
		now:               time.Now,
	}
}

// CompleteGoogleLogin records the Google user and opens a session for them.
func (s *Service) CompleteGoogleLogin(ctx context.Context, info UserInfo) (string, error) {
	now := s.now().UTC()
	name := info.Name
	if name == "" {
		name = info.Email
	}
	u := store.User{Email: info.Email, Name: name, Role: defaultRole, CreatedAt: now, LastLogin: now}
	if err := s.Users.Upsert(ctx, u); err != nil {
		return "", err
	}
	token, err := s.startSession(ctx, u)
	if err != nil {
		return "", err
	}
	s.Logger.Info("google login", zap.String("email", u.Email))
	return token, nil
}

// PasswordlessLogin opens a session for an existing user by email alone.
func (s *Service) PasswordlessLogin(ctx context.Context, username string) (string, store.User, error) {
	if !s.AllowPasswordless {
		return "", store.User{}, ErrLoginDisabled
	}
	u, err := s.Users.FindByEmail(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", store.User{}, ErrInvalidCredentials
		}
		return "", store.User{}, err
	}
	token, err := s.startSession(ctx, u)
	if err != nil {
		return "", store.User{}, err
	}
	return token, u, nil
}

// Verify confirms the user still has an active session and records the visit.
func (s *Service) Verify(ctx context.Context, claims *Claims) (store.User, error) {
	now := s.now().UTC()
	if _, err := s.Sessions.FindActive(ctx, claims.Subject, "", now); err != nil {
		return store.User{}, sessionErr(err)
	}
	u, err := s.user(ctx, claims.Subject)
	if err != nil {
		return store.User{}, err
	}
	if err := s.Users.TouchLastLogin(ctx, u.Email, now); err != nil {
		return store.User{}, err
	}
	u.LastLogin = now
	return u, nil
}

// CheckSession is Verify for one exact token, without touching last_login.
func (s *Service) CheckSession(ctx context.Context, claims *Claims, token string) (store.User, error) {
	if _, err := s.Sessions.FindActive(ctx, claims.Subject, token, s.now().UTC()); err != nil {
		return store.User{}, sessionErr(err)
	}
	return s.user(ctx, claims.Subject)
}

func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	n, err := s.Sessions.Deactivate(ctx, claims.Subject, s.now().UTC())
	if err != nil {
		return err
	}
	s.Logger.Info("logout", zap.String("email", claims.Subject), zap.Int64("sessions", n))
	return nil
}

func (s *Service) Profile(ctx context.Context, claims *Claims) (store.User, error) {
	return s.user(ctx, claims.Subject)
}

func (s *Service) startSession(ctx context.Context, u store.User) (string, error) {
	token, claims, err := s.Issuer.Issue(u)
	if err != nil {
		return "", err
	}
	sess := store.Session{
		ID:        claims.ID,
		UserID:    u.Email,
		Token:     token,
		CreatedAt: claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		IsActive:  true,
	}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) user(ctx context.Context, email string) (store.User, error) {
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, ErrUserNotFound
		}
		return store.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func sessionErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionInvalid
	}
	return fmt.Errorf("load session: %w", err)
}
