package domain

import "time"

// Agent is a helpdesk operator who signs in through the page router. Admin
// capability is derived from the email's domain suffix, not stored here.
type Agent struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
