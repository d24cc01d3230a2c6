package ws

// Входящие события протокола
const (
	TypeNewRoom       = "newRoom"
	TypeDeleteRoom    = "deleteRoom"
	TypeJoinRoom      = "joinRoom"
	TypeChatMessage   = "chatMessage"
	TypeDeleteMessage = "deleteMessage"
	TypeTyping        = "typing"
	TypeStopTyping    = "stopTyping"
	TypeSeen          = "seen"
)

// Исходящие события
const (
	TypeRoomList       = "roomList"
	TypeHistory        = "history"
	TypeMessage        = "message"
	TypeMessageDeleted = "messageDeleted"
	TypeSeenUpdate     = "seenUpdate"
	// typing/stopTyping ретранслируются под теми же именами
)

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type RoomItem struct {
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
	CreatedAt int64  `json:"created_at_unix"`
}

type RoomListPayload struct {
	Rooms []RoomItem `json:"rooms"`
}

type MessageItem struct {
	ID        string   `json:"id"`
	Room      string   `json:"room"`
	Author    string   `json:"author"`
	Avatar    string   `json:"avatar,omitempty"`
	Text      string   `json:"text"`
	CreatedAt int64    `json:"created_at_unix"`
	SeenBy    []string `json:"seen_by"`
}

type HistoryPayload struct {
	Room     string        `json:"room"`
	Messages []MessageItem `json:"messages"`
}

// chatMessage (входящее)
type ChatPayload struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// newRoom / deleteRoom / joinRoom / typing / stopTyping (входящие)
type RoomNamePayload struct {
	Room string `json:"room"`
}

// deleteMessage / seen (входящие), messageDeleted (исходящее)
type MessageIDPayload struct {
	ID string `json:"id"`
}

// typing (исходящее)
type TypingPayload struct {
	Username string `json:"username"`
}

type SeenUpdatePayload struct {
	ID     string   `json:"id"`
	SeenBy []string `json:"seen_by"`
}
