package model

import "time"

const (
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

// Account is the identity-provider record: credentials only, no dashboard data.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// User is the dashboard identity, created lazily for an Account on first use.
type User struct {
	ID        string    `json:"id"`
	AuthID    string    `json:"authId"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
