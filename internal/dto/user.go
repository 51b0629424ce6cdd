package dto

import "github.com/noah-isme/sma-timetable-api/internal/models"

// CreateUserRequest registers an account.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required,max=120"`
	Role     models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN ADMIN TEACHER"`
	Active   *bool           `json:"active"`
	Password string          `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest changes profile, role or status of an account.
type UpdateUserRequest struct {
	FullName string          `json:"full_name" validate:"required,max=120"`
	Role     models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN ADMIN TEACHER"`
	Active   *bool           `json:"active"`
}

// UserQuery filters the account list.
type UserQuery struct {
	ListQuery
	Role   string `form:"role"`
	Active *bool  `form:"active"`
}
