package postgres

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// messageCursor фиксирует позицию в ленте комнаты: сортировка
// (created_at, id::text) по убыванию, страница продолжается строго
// после последнего отданного сообщения.
type messageCursor struct {
	PostedAt  time.Time `json:"posted_at"`
	MessageID string    `json:"message_id"`
}

func encodeMessageCursor(m *domain.Message) string {
	raw, _ := json.Marshal(messageCursor{PostedAt: m.CreatedAt, MessageID: m.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeMessageCursor возвращает nil для пустой строки — первая страница.
func decodeMessageCursor(s string) (*messageCursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c messageCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return &c, nil
}

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Save не проверяет существование комнаты: room — просто имя,
// сообщение может ссылаться на комнату без записи в rooms.
func (r *MessageRepository) Save(ctx context.Context, room, author, avatar, text string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO room_messages (room, author, avatar, text)
		VALUES ($1, $2, $3, $4)
		RETURNING id, room, author, avatar, text, created_at, seen_by
	`, room, author, avatar, text)

	var m domain.Message
	if err := row.Scan(&m.ID, &m.Room, &m.Author, &m.Avatar, &m.Text, &m.CreatedAt, &m.SeenBy); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepository) Get(ctx context.Context, id string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, room, author, avatar, text, created_at, seen_by
		FROM room_messages
		WHERE id = $1
	`, id)

	var m domain.Message
	if err := row.Scan(&m.ID, &m.Room, &m.Author, &m.Avatar, &m.Text, &m.CreatedAt, &m.SeenBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

// History возвращает всю историю комнаты по возрастанию created_at.
func (r *MessageRepository) History(ctx context.Context, room string) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, room, author, avatar, text, created_at, seen_by
		FROM room_messages
		WHERE room = $1
		ORDER BY created_at ASC, id ASC
	`, room)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Room, &m.Author, &m.Avatar, &m.Text, &m.CreatedAt, &m.SeenBy); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// HistoryPage — курсорная пагинация (created_at,id DESC) для REST-выдачи.
func (r *MessageRepository) HistoryPage(ctx context.Context, room, after string, limit int) ([]domain.Message, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := decodeMessageCursor(after)
	if err != nil {
		return nil, "", err
	}
	const baseQuery = `
		SELECT id, room, author, avatar, text, created_at, seen_by
		FROM room_messages
		WHERE room = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id::text < $3)
		  )
		ORDER BY created_at DESC, id::text DESC
		LIMIT $4
	`

	var postedAt any
	var msgID any
	if cur != nil {
		postedAt = cur.PostedAt
		msgID = cur.MessageID
	}

	rows, err := r.db.Query(ctx, baseQuery, room, postedAt, msgID, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Room, &m.Author, &m.Avatar, &m.Text, &m.CreatedAt, &m.SeenBy); err != nil {
			return nil, "", err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		next = encodeMessageCursor(&out[len(out)-1])
	}
	return out, next, nil
}

func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM room_messages WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// MarkSeen — защищён от гонок: строка сообщения блокируется,
// параллельные seen по одному id выстраиваются в очередь.
// Возвращает комнату и актуальное множество seen_by; changed=false,
// если viewer уже был в множестве.
func (r *MessageRepository) MarkSeen(ctx context.Context, id, viewer string) (room string, seenBy []string, changed bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", nil, false, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`SELECT room, seen_by FROM room_messages WHERE id=$1 FOR UPDATE`, id).
		Scan(&room, &seenBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, false, domain.ErrMessageNotFound
		}
		return "", nil, false, err
	}

	for _, u := range seenBy {
		if u == viewer {
			return room, seenBy, false, tx.Commit(ctx)
		}
	}

	err = tx.QueryRow(ctx, `
		UPDATE room_messages
		SET seen_by = array_append(seen_by, $2)
		WHERE id = $1
		RETURNING seen_by
	`, id, viewer).Scan(&seenBy)
	if err != nil {
		return "", nil, false, err
	}

	return room, seenBy, true, tx.Commit(ctx)
}
