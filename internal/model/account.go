package model

import "time"

// User owns a passport collection. Every passport query is scoped by User.ID.
type User struct {
	ID        string
	Email     string // empty for anonymous users
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity ties a User to one sign-in provider account. An anonymous
// identity has Provider "anonymous" and a random ProviderUserID, so it can
// never be matched again.
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session is a signed-in browser. ID is the session cookie value.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
