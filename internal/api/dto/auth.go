package dto

import (
	"time"

	"github.com/kewsys/registry/internal/domain/user"
	"github.com/kewsys/registry/internal/validator"
)

// LoginRequest accepts either a username or an email as the identifier
type LoginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      *user.User `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

func (r *ChangePasswordRequest) Validate() error {
	return validator.ValidateRequest(r)
}
