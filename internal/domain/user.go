package domain

import (
	"strings"
	"time"
)

type UserID int64

type User struct {
	ID           UserID
	Username     string
	Avatar       string
	PasswordHash string
	CreatedAt    time.Time
}

func NewUser(username, passwordHash, avatar string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyInput
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, ErrEmptyInput
	}

	return &User{
		Username:     username,
		Avatar:       avatar,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}, nil
}
