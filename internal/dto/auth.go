package dto

import (
	"time"

	"github.com/noah-isme/smart-attendance/internal/models"
)

// RegisterRequest captures POST /auth/register payload.
type RegisterRequest struct {
	Name     string          `json:"name" validate:"required,max=120"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6"`
	Role     models.UserRole `json:"role" validate:"omitempty,user_role"`
}

// LoginRequest captures POST /auth/login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	IssuedAt    time.Time       `json:"issued_at"`
	User        models.UserInfo `json:"user"`
}
