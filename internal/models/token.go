package models

import "time"

// RefreshToken represents a persisted refresh token row. Exactly one live row
// exists per rotation chain; rotation replaces the row inside a transaction.
type RefreshToken struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"token"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
