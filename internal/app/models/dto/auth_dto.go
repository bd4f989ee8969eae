package dto

// LoginRequest represents student login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"jane@school.edu"`
	Password string `json:"password" binding:"required" example:"Secret123"`
}

// AdminLoginRequest represents admin login credentials
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"Secret123"`
}

// ChangePasswordRequest changes the caller's own password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType" example:"Bearer"`
	ExpiresIn   int64  `json:"expiresIn" example:"86400"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token TokenResponse `json:"token"`
	Role  string        `json:"role" example:"student"`
	User  interface{}   `json:"user"`
}

// MeResponse describes the caller behind a token
type MeResponse struct {
	Role string      `json:"role" example:"student"`
	User interface{} `json:"user"`
}
