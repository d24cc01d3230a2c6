package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

type SessionRepository struct {
	q querier
}

func NewSessionRepository(q querier) *SessionRepository {
	return &SessionRepository{q: q}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, int64(s.UserID), strings.TrimSpace(s.TokenHash), s.ExpiresAt, s.CreatedAt).Scan(&id)
	if err != nil {
		return 0, mapPgError(err)
	}
	return id, nil
}

// GetByTokenHash ищет сессию по точному хешу токена.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var (
		s      domain.Session
		userID int64
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM sessions
		WHERE token_hash = $1
		LIMIT 1
	`, strings.TrimSpace(tokenHash)).Scan(&s.ID, &userID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, mapPgError(err)
	}
	s.UserID = domain.UserID(userID)
	return &s, nil
}

func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE token_hash=$1`, strings.TrimSpace(tokenHash))
	return err
}

// DeleteExpired — очистка просроченных сессий на момент now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
