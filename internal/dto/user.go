package dto

import "github.com/noah-isme/smart-attendance/internal/models"

// UpdateRoleRequest captures PATCH /users/:id/role payload.
type UpdateRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,user_role"`
}

// AssignCardRequest captures PUT /users/:id/card payload.
type AssignCardRequest struct {
	CardID string `json:"card_id" validate:"required,max=64"`
}
