package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SessionCookie — имя cookie по умолчанию; переопределяется конфигом.
const SessionCookie = "session"

type Directory interface {
	List(ctx context.Context) ([]domain.Room, error)
	EnsureNonEmpty(ctx context.Context, username string) ([]domain.Room, error)
	Create(ctx context.Context, name, creator string) (*domain.Room, error)
	Delete(ctx context.Context, name, requester string) error
}

type MessageLog interface {
	Append(ctx context.Context, room, author, avatar, text string) (*domain.Message, error)
	History(ctx context.Context, room string) ([]domain.Message, error)
	Delete(ctx context.Context, id, requester string) (*domain.Message, error)
	MarkSeen(ctx context.Context, id, viewer string) (room string, seenBy []string, changed bool, err error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	session  *ConnectionSession
	dir      Directory
	log      MessageLog

	cookieName string
	pingEvery  time.Duration
}

func NewServer(hub *Hub, session *ConnectionSession, dir Directory, log MessageLog, cookieName string) *Server {
	if cookieName == "" {
		cookieName = SessionCookie
	}
	return &Server{
		hub:        hub,
		session:    session,
		dir:        dir,
		log:        log,
		cookieName: cookieName,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws, токен сессии в cookie.
// Без валидной сессии соединение обрывается до обмена событиями.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	var token string
	if ck, err := r.Cookie(s.cookieName); err == nil {
		token = ck.Value
	}

	user, err := s.session.Open(r.Context(), token)
	if err != nil {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "user", user.Username, "err", err)
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}

	c := newWsConn(conn, user)
	s.hub.Register(c)
	slog.Info("ws connected", "user", user.Username, "conn", c.id)

	// Начальный roomList — ровно один раз, сразу после регистрации.
	// Пустой справочник здесь же порождает lobby.
	if err := s.sendRoomList(r.Context(), c); err != nil {
		slog.Warn("ws send initial room list failed", "user", user.Username, "err", err)
	}

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	// Deregister выполняется безусловно, в том числе при обрыве транспорта.
	s.hub.Deregister(c)
	slog.Info("ws disconnected", "user", user.Username, "conn", c.id)

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "user", user.Username, "err", err)
	}
}

func (s *Server) sendRoomList(ctx context.Context, c *wsConn) error {
	rooms, err := s.dir.EnsureNonEmpty(ctx, c.user.Username)
	if err != nil {
		return err
	}
	return c.Send(Event{Type: TypeRoomList, Payload: toRoomList(rooms)})
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		s.dispatch(ctx, c, ev)
	}
}

// dispatch обрабатывает одно входящее событие. Политика ошибок везде
// одна: не выполненное предусловие — молчаливый no-op, соединение живёт,
// клиенту ничего не отправляется.
func (s *Server) dispatch(ctx context.Context, c *wsConn, ev Event) {
	switch ev.Type {
	case TypeNewRoom:
		s.handleNewRoom(ctx, c, ev)
	case TypeDeleteRoom:
		s.handleDeleteRoom(ctx, c, ev)
	case TypeJoinRoom:
		s.handleJoinRoom(ctx, c, ev)
	case TypeChatMessage:
		s.handleChatMessage(ctx, c, ev)
	case TypeDeleteMessage:
		s.handleDeleteMessage(ctx, c, ev)
	case TypeTyping:
		s.handleTyping(ctx, c, ev, TypeTyping)
	case TypeStopTyping:
		s.handleTyping(ctx, c, ev, TypeStopTyping)
	case TypeSeen:
		s.handleSeen(ctx, c, ev)
	default:
		// ignore
	}
}

func (s *Server) handleNewRoom(ctx context.Context, c *wsConn, ev Event) {
	var p RoomNamePayload
	if decode(ev.Payload, &p) != nil {
		return
	}
	if _, err := s.dir.Create(ctx, p.Room, c.user.Username); err != nil {
		slog.Debug("ws create room ignored", "room", p.Room, "user", c.user.Username, "err", err)
		return
	}
	s.broadcastRoomList(ctx)
}

func (s *Server) handleDeleteRoom(ctx context.Context, c *wsConn, ev Event) {
	var p RoomNamePayload
	if decode(ev.Payload, &p) != nil {
		return
	}
	if err := s.dir.Delete(ctx, p.Room, c.user.Username); err != nil {
		slog.Debug("ws delete room ignored", "room", p.Room, "user", c.user.Username, "err", err)
		return
	}
	s.broadcastRoomList(ctx)
}

func (s *Server) handleJoinRoom(ctx context.Context, c *wsConn, ev Event) {
	var p RoomNamePayload
	if decode(ev.Payload, &p) != nil {
		return
	}
	room := strings.TrimSpace(p.Room)
	if room == "" {
		return
	}

	// Членство единственное: Join сам снимает прежнюю комнату.
	// Существование комнаты не проверяется.
	s.hub.Join(c, room)

	history, err := s.log.History(ctx, room)
	if err != nil {
		slog.Debug("ws history ignored", "room", room, "user", c.user.Username, "err", err)
		return
	}
	items := make([]MessageItem, 0, len(history))
	for _, m := range history {
		items = append(items, toMessageItem(&m))
	}
	// История уходит только вошедшему.
	_ = c.Send(Event{Type: TypeHistory, Payload: HistoryPayload{Room: room, Messages: items}})
}

func (s *Server) handleChatMessage(ctx context.Context, c *wsConn, ev Event) {
	var p ChatPayload
	if decode(ev.Payload, &p) != nil {
		return
	}
	// имя комнаты обрезается так же, как в joinRoom: " lobby" и "lobby" —
	// одна комната
	room := strings.TrimSpace(p.Room)
	if room == "" {
		return
	}
	msg, err := s.log.Append(ctx, room, c.user.Username, c.user.Avatar, p.Text)
	if err != nil {
		slog.Debug("ws chat message ignored", "room", room, "user", c.user.Username, "err", err)
		return
	}
	s.hub.BroadcastRoom(msg.Room, Event{Type: TypeMessage, Payload: toMessageItem(msg)})
}

func (s *Server) handleDeleteMessage(ctx context.Context, c *wsConn, ev Event) {
	var p MessageIDPayload
	if decode(ev.Payload, &p) != nil {
		return
	}
	msg, err := s.log.Delete(ctx, p.ID, c.user.Username)
	if err != nil {
		slog.Debug("ws delete message ignored", "id", p.ID, "user", c.user.Username, "err", err)
		return
	}
	s.hub.BroadcastRoom(msg.Room, Event{Type: TypeMessageDeleted, Payload: MessageIDPayload{ID: msg.ID}})
}

// typing/stopTyping нигде не персистятся; отправитель своё событие не получает.
func (s *Server) handleTyping(ctx context.Context, c *wsConn, ev Event, outType string) {
	var p RoomNamePayload
	if decode(ev.Payload, &p) != nil {
		return
	}
	room := strings.TrimSpace(p.Room)
	if room == "" {
		return
	}
	var payload interface{}
	if outType == TypeTyping {
		payload = TypingPayload{Username: c.user.Username}
	}
	s.hub.BroadcastRoomExcept(room, Event{Type: outType, Payload: payload}, c)
}

func (s *Server) handleSeen(ctx context.Context, c *wsConn, ev Event) {
	var p MessageIDPayload
	if decode(ev.Payload, &p) != nil {
		return
	}
	room, seenBy, changed, err := s.log.MarkSeen(ctx, p.ID, c.user.Username)
	if err != nil {
		slog.Debug("ws seen ignored", "id", p.ID, "user", c.user.Username, "err", err)
		return
	}
	// Повторный seen не мутирует множество и не порождает рассылку.
	if !changed {
		return
	}
	s.hub.BroadcastRoom(room, Event{Type: TypeSeenUpdate, Payload: SeenUpdatePayload{ID: p.ID, SeenBy: seenBy}})
}

func (s *Server) broadcastRoomList(ctx context.Context) {
	rooms, err := s.dir.List(ctx)
	if err != nil {
		slog.Warn("ws room list broadcast failed", "err", err)
		return
	}
	s.hub.BroadcastAll(Event{Type: TypeRoomList, Payload: toRoomList(rooms)})
}

// writeLoop — единственный писатель сокета: разбирает очередь
// соединения и шлёт пинги. Ошибка записи закрывает соединение.
func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.sendq:
			c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteJSON(ev); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// --- helpers ---

func toRoomList(rooms []domain.Room) RoomListPayload {
	items := make([]RoomItem, 0, len(rooms))
	for _, rm := range rooms {
		items = append(items, RoomItem{
			Name:      rm.Name,
			CreatedBy: rm.CreatedBy,
			CreatedAt: rm.CreatedAt.Unix(),
		})
	}
	return RoomListPayload{Rooms: items}
}

func toMessageItem(m *domain.Message) MessageItem {
	seen := m.SeenBy
	if seen == nil {
		seen = []string{}
	}
	return MessageItem{
		ID:        m.ID,
		Room:      m.Room,
		Author:    m.Author,
		Avatar:    m.Avatar,
		Text:      m.Text,
		CreatedAt: m.CreatedAt.Unix(),
		SeenBy:    seen,
	}
}

func decode(payload interface{}, dst interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}

// Ёмкость очереди исходящих событий соединения.
const sendQueueSize = 64

var errConnClosed = errors.New("connection closed")

type wsConn struct {
	conn      *websocket.Conn
	id        string
	user      *domain.User
	sendq     chan Event
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(c *websocket.Conn, user *domain.User) *wsConn {
	return &wsConn{
		conn:   c,
		id:     uuid.NewString(),
		user:   user,
		sendq:  make(chan Event, sendQueueSize),
		closed: make(chan struct{}),
	}
}

// Send ставит событие в очередь соединения и не блокируется на сокете:
// хаб, держащий мьютекс на время доставки, не ждёт медленного потребителя.
// Переполненная очередь означает безнадёжно отставшего клиента —
// соединение закрывается.
func (c *wsConn) Send(ev Event) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	select {
	case c.sendq <- ev:
		return nil
	default:
		_ = c.Close()
		return errConnClosed
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}
