package domain

import (
	"strings"
	"time"
)

// Запись о cookie-сессии пользователя. В базе хранится только хеш токена.
type Session struct {
	ID        int64
	UserID    UserID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func NewSession(userID UserID, tokenHash string, expiresAt, now time.Time) (*Session, error) {
	if strings.TrimSpace(tokenHash) == "" {
		return nil, ErrEmptyInput
	}
	if !expiresAt.After(now) {
		return nil, ErrSessionExpired
	}

	return &Session{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
