package models

import "time"

// User is an account on the sync server.
type User struct {
	ID       string `json:"userId"`
	Provider string `json:"provider"`
	// Login is empty for anonymous accounts.
	Login     string    `json:"login,omitempty"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
