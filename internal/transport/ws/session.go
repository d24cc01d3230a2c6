package ws

import (
	"context"
	"fmt"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (domain.UserID, error)
}

type IdentityStore interface {
	Lookup(ctx context.Context, id domain.UserID) (*domain.User, error)
}

// ConnectionSession — мост между HTTP-аутентификацией и живым соединением.
// Вызывается ровно один раз при открытии; до успешного Open ни одно
// событие протокола не принимается.
type ConnectionSession struct {
	sessions SessionResolver
	identity IdentityStore
}

func NewConnectionSession(sessions SessionResolver, identity IdentityStore) *ConnectionSession {
	return &ConnectionSession{sessions: sessions, identity: identity}
}

// Open резолвит токен сессии в профиль пользователя.
// Любой сбой (нет токена, просрочен, пользователь исчез) — ErrUnauthenticated.
func (cs *ConnectionSession) Open(ctx context.Context, token string) (*domain.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrUnauthenticated
	}

	uid, err := cs.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve session", domain.ErrUnauthenticated)
	}

	u, err := cs.identity.Lookup(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup user", domain.ErrUnauthenticated)
	}
	return u, nil
}
