package domain

import "time"

// Room идентифицируется именем: name — первичный ключ.
type Room struct {
	Name      string    `db:"name"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}
