package ws

import (
	"sync"
)

type Conn interface {
	Send(ev Event) error
	Close() error
}

// Hub владеет отображением «комната -> множество соединений».
// Инвариант: соединение состоит не более чем в одной комнате;
// Join снимает прежнее членство. Мьютекс один и держится на время
// доставки, поэтому все участники комнаты наблюдают события
// в одном и том же порядке.
type Hub struct {
	mu      sync.Mutex
	members map[Conn]string              // conn -> текущая комната ("" — вне комнат)
	rooms   map[string]map[Conn]struct{} // room -> set of connections
}

func NewHub() *Hub {
	return &Hub{
		members: make(map[Conn]string),
		rooms:   make(map[string]map[Conn]struct{}),
	}
}

// Register добавляет соединение без членства в комнатах.
// Начальный roomList хаб не шлёт — это ответственность обработчика протокола.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.members[c]; !ok {
		h.members[c] = ""
	}
}

// Join переводит соединение в room. Существование комнаты в справочнике
// не проверяется. Join незарегистрированного соединения — no-op.
func (h *Hub) Join(c Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev, ok := h.members[c]
	if !ok {
		return
	}
	if prev == room {
		return
	}
	h.detachLocked(c, prev)

	rs, ok := h.rooms[room]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[room] = rs
	}
	rs[c] = struct{}{}
	h.members[c] = room
}

// Leave снимает членство в комнате, соединение остаётся зарегистрированным.
func (h *Hub) Leave(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.members[c]; ok {
		h.detachLocked(c, prev)
		h.members[c] = ""
	}
}

// Deregister убирает соединение полностью. Повторный вызов — no-op;
// последующие broadcast просто не увидят это соединение.
func (h *Hub) Deregister(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.members[c]; ok {
		h.detachLocked(c, prev)
		delete(h.members, c)
	}
}

func (h *Hub) detachLocked(c Conn, room string) {
	if room == "" {
		return
	}
	if rs, ok := h.rooms[room]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Room возвращает текущую комнату соединения.
func (h *Hub) Room(c Conn) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.members[c]
	return room, ok
}

func (h *Hub) BroadcastRoom(room string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[room]; ok {
		for c := range rs {
			_ = c.Send(ev) // best-effort
		}
	}
}

// BroadcastRoomExcept — как BroadcastRoom, но пропускает except
// (typing не возвращается отправителю).
func (h *Hub) BroadcastRoomExcept(room string, ev Event, except Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[room]; ok {
		for c := range rs {
			if c == except {
				continue
			}
			_ = c.Send(ev)
		}
	}
}

// BroadcastAll доставляет всем зарегистрированным соединениям
// независимо от комнаты (обновления списка комнат).
func (h *Hub) BroadcastAll(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.members {
		_ = c.Send(ev)
	}
}
