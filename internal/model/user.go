package model

import "time"

// User represents an account as stored in the `users` table.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique, case-sensitive login name.
//  PasswordHash – bcrypt hash of the password; never serialized.
//  Role         – customer or admin.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    `json:"id"`         // users.id
	Username     string    `json:"username"`   // users.username
	PasswordHash string    `json:"-"`          // users.password_hash
	Role         Role      `json:"role"`       // users.role
	CreatedAt    time.Time `json:"created_at"` // users.created_at
}

// Identity returns the claim set for the user.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}
