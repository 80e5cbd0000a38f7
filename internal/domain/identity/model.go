// Package identity manages practitioner accounts and login.
package identity

import "time"

// User is a practitioner account. PasswordHash is the argon2id PHC
// string and never leaves the repo layer in API responses.
type User struct {
	UserID       string     `json:"user_id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Branch       string     `json:"branch,omitempty"`
	Location     string     `json:"location,omitempty"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Profile is the public projection returned by login and /me.
type Profile struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Profile returns the public view of the user.
func (u *User) Profile() *Profile {
	return &Profile{
		UserID:    u.UserID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
