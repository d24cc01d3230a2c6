package ws

import (
	"sync"
	"testing"
)

// fakeConn записывает доставленные события вместо реального сокета.
type fakeConn struct {
	mu     sync.Mutex
	events []Event
}

func (c *fakeConn) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func TestHub_SingleMembership(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}

	h.Register(c)
	h.Join(c, "a")
	h.Join(c, "b")

	room, ok := h.Room(c)
	if !ok {
		t.Fatalf("connection not registered")
	}
	if room != "b" {
		t.Fatalf("expected membership in b, got %q", room)
	}

	h.BroadcastRoom("a", Event{Type: "x"})
	if n := len(c.received()); n != 0 {
		t.Fatalf("stale membership: got %d events from room a", n)
	}

	h.BroadcastRoom("b", Event{Type: "y"})
	if n := len(c.received()); n != 1 {
		t.Fatalf("expected 1 event from room b, got %d", n)
	}
}

func TestHub_JoinWithoutRegister(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}

	// Join после Deregister (или до Register) не восстанавливает членство
	h.Join(c, "a")

	if _, ok := h.Room(c); ok {
		t.Fatalf("unregistered connection must not gain membership")
	}
	h.BroadcastRoom("a", Event{Type: "x"})
	if n := len(c.received()); n != 0 {
		t.Fatalf("expected no delivery, got %d", n)
	}
}

func TestHub_BroadcastRoomScope(t *testing.T) {
	h := NewHub()
	a, b, out := &fakeConn{}, &fakeConn{}, &fakeConn{}

	h.Register(a)
	h.Register(b)
	h.Register(out)
	h.Join(a, "general")
	h.Join(b, "general")
	h.Join(out, "other")

	h.BroadcastRoom("general", Event{Type: "msg"})

	if len(a.received()) != 1 || len(b.received()) != 1 {
		t.Fatalf("room members must receive the event")
	}
	if len(out.received()) != 0 {
		t.Fatalf("non-member received a room event")
	}
}

func TestHub_BroadcastRoomExcept(t *testing.T) {
	h := NewHub()
	typer, other := &fakeConn{}, &fakeConn{}

	h.Register(typer)
	h.Register(other)
	h.Join(typer, "general")
	h.Join(other, "general")

	h.BroadcastRoomExcept("general", Event{Type: TypeTyping}, typer)

	if len(typer.received()) != 0 {
		t.Fatalf("typer received own typing event")
	}
	if len(other.received()) != 1 {
		t.Fatalf("other member did not receive typing event")
	}
}

func TestHub_BroadcastAll(t *testing.T) {
	h := NewHub()
	inRoom, roomless := &fakeConn{}, &fakeConn{}

	h.Register(inRoom)
	h.Register(roomless)
	h.Join(inRoom, "general")

	h.BroadcastAll(Event{Type: TypeRoomList})

	if len(inRoom.received()) != 1 || len(roomless.received()) != 1 {
		t.Fatalf("broadcastAll must reach every registered connection")
	}
}

func TestHub_DeregisterIsFinal(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}

	h.Register(c)
	h.Join(c, "general")
	h.Deregister(c)
	h.Deregister(c) // повторный вызов — no-op

	h.BroadcastRoom("general", Event{Type: "msg"})
	h.BroadcastAll(Event{Type: TypeRoomList})

	if n := len(c.received()); n != 0 {
		t.Fatalf("deregistered connection received %d events", n)
	}
	if _, ok := h.Room(c); ok {
		t.Fatalf("deregistered connection still tracked")
	}
}

func TestHub_LeaveKeepsRegistration(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}

	h.Register(c)
	h.Join(c, "general")
	h.Leave(c)

	h.BroadcastRoom("general", Event{Type: "msg"})
	if n := len(c.received()); n != 0 {
		t.Fatalf("left connection received room event")
	}

	h.BroadcastAll(Event{Type: TypeRoomList})
	if n := len(c.received()); n != 1 {
		t.Fatalf("left connection must still receive broadcastAll, got %d", n)
	}
}

func TestHub_PerRoomOrdering(t *testing.T) {
	h := NewHub()
	a, b := &fakeConn{}, &fakeConn{}

	h.Register(a)
	h.Register(b)
	h.Join(a, "general")
	h.Join(b, "general")

	h.BroadcastRoom("general", Event{Type: TypeMessage})
	h.BroadcastRoom("general", Event{Type: TypeMessageDeleted})

	for _, c := range []*fakeConn{a, b} {
		got := c.received()
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}
		if got[0].Type != TypeMessage || got[1].Type != TypeMessageDeleted {
			t.Fatalf("events reordered: %s, %s", got[0].Type, got[1].Type)
		}
	}
}
