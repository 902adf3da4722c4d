package models

import "time"

// User represents an application user record.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// Sanitize returns a copy of the user without sensitive fields populated.
func (u User) Sanitize() User {
	u.PasswordHash = ""
	return u
}
