package dto

import (
	"github.com/kewsys/registry/internal/domain/user"
	"github.com/kewsys/registry/internal/types"
	"github.com/kewsys/registry/internal/validator"
)

type CreateUserRequest struct {
	Username    string     `json:"username" validate:"required,min=3,max=50"`
	Email       string     `json:"email" validate:"required,email,max=100"`
	Password    string     `json:"password" validate:"required,min=6"`
	FullName    string     `json:"fullName" validate:"required,max=100"`
	Role        types.Role `json:"role" validate:"omitempty,oneof=admin manager staff veterinarian visitor"`
	Department  string     `json:"department" validate:"omitempty,max=100"`
	Position    string     `json:"position" validate:"omitempty,max=100"`
	PhoneNumber string     `json:"phoneNumber" validate:"omitempty,max=20"`
}

func (r *CreateUserRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// UpdateUserRequest is a partial update, nil fields are left unchanged.
// Passwords are changed through reset-password only.
type UpdateUserRequest struct {
	Email       *string     `json:"email" validate:"omitempty,email,max=100"`
	FullName    *string     `json:"fullName" validate:"omitempty,max=100"`
	Role        *types.Role `json:"role" validate:"omitempty,oneof=admin manager staff veterinarian visitor"`
	Department  *string     `json:"department" validate:"omitempty,max=100"`
	Position    *string     `json:"position" validate:"omitempty,max=100"`
	PhoneNumber *string     `json:"phoneNumber" validate:"omitempty,max=20"`
	IsActive    *bool       `json:"isActive"`
}

func (r *UpdateUserRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (r *ResetPasswordRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type UserResponse struct {
	User *user.User `json:"user"`
}

type ListUsersResponse struct {
	Users      []*user.User             `json:"users"`
	Pagination types.PaginationResponse `json:"pagination"`
}
