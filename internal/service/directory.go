package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// LobbyRoom создаётся автоматически, если справочник комнат пуст.
const LobbyRoom = "lobby"

type RoomStore interface {
	Create(ctx context.Context, room *domain.Room) error
	CreateIfAbsent(ctx context.Context, name, createdBy string) error
	Get(ctx context.Context, name string) (*domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	Delete(ctx context.Context, name string) error
}

type DirectoryService struct {
	rooms RoomStore
}

func NewDirectoryService(rooms RoomStore) *DirectoryService {
	return &DirectoryService{rooms: rooms}
}

// List возвращает комнаты по имени по возрастанию.
func (s *DirectoryService) List(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.List(ctx)
}

// EnsureNonEmpty — если комнат нет, создаёт lobby от имени запросившего.
// Гонка двух вызовов безопасна: создание идемпотентно по уникальному имени,
// оба наблюдают один и тот же lobby.
func (s *DirectoryService) EnsureNonEmpty(ctx context.Context, username string) ([]domain.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("roomStore.List: %w", err)
	}
	if len(rooms) > 0 {
		return rooms, nil
	}

	if err := s.rooms.CreateIfAbsent(ctx, LobbyRoom, username); err != nil {
		return nil, fmt.Errorf("roomStore.CreateIfAbsent: %w", err)
	}
	return s.rooms.List(ctx)
}

// Create создаёт комнату с обрезанным именем; пустое имя — ErrEmptyInput.
func (s *DirectoryService) Create(ctx context.Context, name, creator string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyInput
	}

	room := &domain.Room{
		Name:      name,
		CreatedBy: creator,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("roomStore.Create: %w", err)
	}
	return room, nil
}

// Delete — удалять комнату может только её создатель.
// Проверка по равенству username, а не по соединению: создатель может
// удалить комнату с любого из своих подключений.
func (s *DirectoryService) Delete(ctx context.Context, name, requester string) error {
	room, err := s.rooms.Get(ctx, name)
	if err != nil {
		return err
	}
	if room.CreatedBy != requester {
		return domain.ErrForbidden
	}
	return s.rooms.Delete(ctx, name)
}
