package user

import (
	"time"

	"github.com/kewsys/registry/internal/types"
)

// User is an account able to sign in. Password holds the bcrypt hash.
type User struct {
	ID          string     `db:"id" json:"id"`
	Username    string     `db:"username" json:"username"`
	Email       string     `db:"email" json:"email"`
	Password    string     `db:"password" json:"-"`
	FullName    string     `db:"full_name" json:"fullName"`
	Role        types.Role `db:"role" json:"role"`
	Department  string     `db:"department" json:"department"`
	Position    string     `db:"position" json:"position"`
	PhoneNumber string     `db:"phone_number" json:"phoneNumber"`
	IsActive    bool       `db:"is_active" json:"isActive"`
	LastLogin   *time.Time `db:"last_login" json:"lastLogin"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// PublicUser is the view of a user attached to records they own
type PublicUser struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	FullName   string     `json:"fullName"`
	Email      string     `json:"email"`
	Role       types.Role `json:"role"`
	Department string     `json:"department"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
	}
}
