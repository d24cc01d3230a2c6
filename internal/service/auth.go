package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/security"
)

type UserStore interface {
	Create(ctx context.Context, u *domain.User) (domain.UserID, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) (int64, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuthService — хранилище личностей и сессий: проверка пароля,
// выпуск opaque-токена сессии и его резолв в userID.
type AuthService struct {
	users      UserStore
	sessions   SessionStore
	sessionTTL time.Duration
	passPolicy security.BcryptConfig
	now        func() time.Time
}

func NewAuthService(users UserStore, sessions SessionStore, sessionTTL time.Duration, passPolicy security.BcryptConfig, now func() time.Time) *AuthService {
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	return &AuthService{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		passPolicy: passPolicy,
		now:        now,
	}
}

func (s *AuthService) SessionTTL() time.Duration { return s.sessionTTL }

func (s *AuthService) Register(ctx context.Context, username, password, avatar string) (*domain.User, error) {
	hash, err := security.HashPassword(password, &s.passPolicy)
	if err != nil {
		return nil, err
	}

	u, err := domain.NewUser(username, hash, avatar, s.now())
	if err != nil {
		return nil, err
	}

	id, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	u.ID = id
	return u, nil
}

// Login проверяет username+пароль и выпускает токен сессии.
// В базе хранится только sha256-хеш токена.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := security.ComparePassword(u.PasswordHash, password); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := security.RandomTokenURLSafe(32)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	sess, err := domain.NewSession(u.ID, security.SHA256Hex(token), now.Add(s.sessionTTL), now)
	if err != nil {
		return nil, "", err
	}
	if _, err := s.sessions.Create(ctx, sess); err != nil {
		return nil, "", err
	}

	return u, token, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteByTokenHash(ctx, security.SHA256Hex(token))
}

// Resolve — единственная точка аутентификации соединения: opaque-токен
// из cookie превращается в userID. Просроченная сессия — ErrUnauthenticated.
func (s *AuthService) Resolve(ctx context.Context, token string) (domain.UserID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, domain.ErrUnauthenticated
	}

	sess, err := s.sessions.GetByTokenHash(ctx, security.SHA256Hex(token))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return 0, domain.ErrUnauthenticated
		}
		return 0, err
	}
	if sess.IsExpired(s.now()) {
		return 0, domain.ErrUnauthenticated
	}
	return sess.UserID, nil
}

func (s *AuthService) Lookup(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// SweepExpired удаляет просроченные сессии; best-effort, по тикеру из main.
func (s *AuthService) SweepExpired(ctx context.Context) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		slog.Warn("session sweep failed", "err", err)
		return
	}
	if n > 0 {
		slog.Debug("session sweep", "deleted", n)
	}
}
