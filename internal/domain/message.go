package domain

import "time"

type Message struct {
	ID        string    `db:"id"`
	Room      string    `db:"room"`
	Author    string    `db:"author"`
	Avatar    string    `db:"avatar"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
	// SeenBy — множество username; только растёт, повторное добавление идемпотентно.
	SeenBy []string `db:"seen_by"`
}

func (m *Message) SeenByContains(username string) bool {
	for _, u := range m.SeenBy {
		if u == username {
			return true
		}
	}
	return false
}
