package domain

import "time"

// Customer is a verified sender. One customer owns many cards; the link is
// by id string, not a database constraint.
type Customer struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
