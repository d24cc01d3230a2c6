package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	q querier
}

func NewUserRepository(q querier) *UserRepository {
	return &UserRepository{q: q}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (domain.UserID, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO users (username, avatar, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, u.Username, u.Avatar, u.PasswordHash, u.CreatedAt).Scan(&id)
	if err != nil {
		return 0, mapPgError(err)
	}
	return domain.UserID(id), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx,
		`SELECT id, username, avatar, password_hash, created_at FROM users WHERE username=$1`,
		username)
}

func (r *UserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return r.getOne(ctx,
		`SELECT id, username, avatar, password_hash, created_at FROM users WHERE id=$1`,
		int64(id))
}

func (r *UserRepository) getOne(ctx context.Context, sql string, arg any) (*domain.User, error) {
	var u domain.User
	var id int64
	err := r.q.QueryRow(ctx, sql, arg).Scan(&id, &u.Username, &u.Avatar, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, mapPgError(err)
	}
	u.ID = domain.UserID(id)
	return &u, nil
}
