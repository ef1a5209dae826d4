package user

import "time"

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"` // bcrypt of the sha256 digest, never exposed
	CreatedAt time.Time `json:"created_at"`
}
