// AngelaMos | 2026
// entity.go

package deck

import (
	"time"
)

type Deck struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Name      string    `db:"name"`
	CardCount int       `db:"card_count"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
