package service

import (
	"context"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type MessageStore interface {
	Save(ctx context.Context, room, author, avatar, text string) (*domain.Message, error)
	Get(ctx context.Context, id string) (*domain.Message, error)
	History(ctx context.Context, room string) ([]domain.Message, error)
	HistoryPage(ctx context.Context, room, after string, limit int) ([]domain.Message, string, error)
	Delete(ctx context.Context, id string) error
	MarkSeen(ctx context.Context, id, viewer string) (room string, seenBy []string, changed bool, err error)
}

type MessageService struct {
	messages MessageStore
}

func NewMessageService(messages MessageStore) *MessageService {
	return &MessageService{messages: messages}
}

// Append сохраняет сообщение. Единственное предусловие — непустой
// текст после обрезки. Существование комнаты не проверяется:
// сообщение может ссылаться на имя комнаты без записи в rooms.
func (s *MessageService) Append(ctx context.Context, room, author, avatar, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyInput
	}
	return s.messages.Save(ctx, room, author, avatar, text)
}

func (s *MessageService) History(ctx context.Context, room string) ([]domain.Message, error) {
	return s.messages.History(ctx, room)
}

func (s *MessageService) HistoryPage(ctx context.Context, room, after string, limit int) ([]domain.Message, string, error) {
	return s.messages.HistoryPage(ctx, room, after, limit)
}

// Delete — удалять сообщение может только автор. Возвращает удалённое
// сообщение, чтобы вызывающий знал комнату для рассылки.
func (s *MessageService) Delete(ctx context.Context, id, requester string) (*domain.Message, error) {
	msg, err := s.messages.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.Author != requester {
		return nil, domain.ErrForbidden
	}
	if err := s.messages.Delete(ctx, id); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkSeen идемпотентно добавляет viewer в seen_by.
// Множество возвращается всегда; changed=true только при реальной мутации —
// рассылку по этому признаку делает вызывающий.
func (s *MessageService) MarkSeen(ctx context.Context, id, viewer string) (string, []string, bool, error) {
	return s.messages.MarkSeen(ctx, id, viewer)
}
