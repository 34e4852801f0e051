package dto

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserInfo represents the authenticated user in responses
type UserInfo struct {
	ID         int64   `json:"id"`
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	Level      int     `json:"level"`
	AccessType string  `json:"accessType"`
	Balance    float64 `json:"balance"`
	DealerCode *string `json:"dealerCode,omitempty"`
}

// LoginResponse represents the login response body
type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// ChangePasswordRequest represents the change password request body
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// ChangePasswordResponse represents the change password response body
type ChangePasswordResponse struct {
	Success bool `json:"success"`
}
