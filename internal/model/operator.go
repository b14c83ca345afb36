package model

import "time"

// Operator is a staff account allowed to manage the restaurant.
type Operator struct {
	ID           uint64    // operators.id
	Username     string    // operators.username
	PasswordHash string    // operators.password_hash
	CreatedAt    time.Time // operators.created_at
}
