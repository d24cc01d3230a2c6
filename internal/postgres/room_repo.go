package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (name, created_by)
		VALUES ($1, $2)
		RETURNING created_at`
	err := r.db.QueryRow(ctx, query, room.Name, room.CreatedBy).Scan(&room.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

// CreateIfAbsent — идемпотентное создание: проигравший гонку молча выходит.
func (r *RoomRepository) CreateIfAbsent(ctx context.Context, name, createdBy string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO rooms (name, created_by)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, name, createdBy)
	return err
}

func (r *RoomRepository) Get(ctx context.Context, name string) (*domain.Room, error) {
	var rm domain.Room
	query := `SELECT name, created_by, created_at FROM rooms WHERE name=$1`
	err := r.db.QueryRow(ctx, query, name).
		Scan(&rm.Name, &rm.CreatedBy, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}

func (r *RoomRepository) List(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, created_by, created_at FROM rooms ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var rm domain.Room
		if err := rows.Scan(&rm.Name, &rm.CreatedBy, &rm.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

func (r *RoomRepository) Delete(ctx context.Context, name string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM rooms WHERE name=$1`, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}
