package domain

import "time"

// User represents an authenticated user of the dashboard.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
