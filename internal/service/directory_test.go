package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type fakeRoomStore struct {
	mu    sync.Mutex
	rooms map[string]domain.Room
}

func newFakeRoomStore() *fakeRoomStore {
	return &fakeRoomStore{rooms: make(map[string]domain.Room)}
}

func (s *fakeRoomStore) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Name]; ok {
		return domain.ErrAlreadyExists
	}
	room.CreatedAt = time.Now()
	s.rooms[room.Name] = *room
	return nil
}

func (s *fakeRoomStore) CreateIfAbsent(_ context.Context, name, createdBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[name]; !ok {
		s.rooms[name] = domain.Room{Name: name, CreatedBy: createdBy, CreatedAt: time.Now()}
	}
	return nil
}

func (s *fakeRoomStore) Get(_ context.Context, name string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rm, ok := s.rooms[name]; ok {
		return &rm, nil
	}
	return nil, domain.ErrRoomNotFound
}

func (s *fakeRoomStore) List(_ context.Context) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, rm := range s.rooms {
		out = append(out, rm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeRoomStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[name]; !ok {
		return domain.ErrRoomNotFound
	}
	delete(s.rooms, name)
	return nil
}

func TestDirectory_EnsureNonEmpty(t *testing.T) {
	store := newFakeRoomStore()
	svc := NewDirectoryService(store)
	ctx := context.Background()

	rooms, err := svc.EnsureNonEmpty(ctx, "alice")
	if err != nil {
		t.Fatalf("ensureNonEmpty: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != LobbyRoom || rooms[0].CreatedBy != "alice" {
		t.Fatalf("expected lobby by alice, got %+v", rooms)
	}

	// повторный вызов от другого пользователя не создаёт второй lobby
	rooms, err = svc.EnsureNonEmpty(ctx, "bob")
	if err != nil {
		t.Fatalf("ensureNonEmpty: %v", err)
	}
	if len(rooms) != 1 || rooms[0].CreatedBy != "alice" {
		t.Fatalf("lobby must stay attributed to alice, got %+v", rooms)
	}
}

func TestDirectory_EnsureNonEmptySkipsWhenPopulated(t *testing.T) {
	store := newFakeRoomStore()
	svc := NewDirectoryService(store)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "general", "alice"); err != nil {
		t.Fatalf("create: %v", err)
	}

	rooms, err := svc.EnsureNonEmpty(ctx, "bob")
	if err != nil {
		t.Fatalf("ensureNonEmpty: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "general" {
		t.Fatalf("lobby must not be created, got %+v", rooms)
	}
}

func TestDirectory_CreateTrimsAndRejectsEmpty(t *testing.T) {
	svc := NewDirectoryService(newFakeRoomStore())
	ctx := context.Background()

	room, err := svc.Create(ctx, "  general  ", "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if room.Name != "general" {
		t.Fatalf("name not trimmed: %q", room.Name)
	}

	if _, err := svc.Create(ctx, "   ", "alice"); !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := svc.Create(ctx, "general", "bob"); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestDirectory_ListSorted(t *testing.T) {
	svc := NewDirectoryService(newFakeRoomStore())
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := svc.Create(ctx, name, "alice"); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	rooms, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if rooms[i].Name != name {
			t.Fatalf("unsorted list: %+v", rooms)
		}
	}
}

func TestDirectory_DeleteCreatorOnly(t *testing.T) {
	svc := NewDirectoryService(newFakeRoomStore())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "general", "alice"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, "general", "bob"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	// комната жива
	if _, err := svc.Create(ctx, "general", "alice"); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("room must survive forbidden delete, got %v", err)
	}

	if err := svc.Delete(ctx, "general", "alice"); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	if err := svc.Delete(ctx, "general", "alice"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}
