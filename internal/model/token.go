package model

import "time"

// Token is a row of personal_access_tokens. Only the hash of the secret is stored.
type Token struct {
	ID         int64
	UserID     int64
	Name       string
	TokenHash  string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}
