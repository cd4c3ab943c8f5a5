// Package dto contains Data Transfer Objects for API request and response structures
package dto

// RegisterRequest represents the request payload for account registration
type RegisterRequest struct {
	Email        string  `json:"email" validate:"required,email,max=120" example:"researcher@university.edu"`
	Password     string  `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
	Name         string  `json:"name" validate:"required,min=2,max=100" example:"Maria Ivanova"`
	Institution  *string `json:"institution,omitempty" validate:"omitempty,max=200" example:"Faculty of Engineering"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=20" example:"+74951234567"`
	CaptchaID    string  `json:"captcha_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	CaptchaAngle float64 `json:"captcha_angle" validate:"required" example:"137"`
}

// RegisterResponse represents the response after a successful registration
type RegisterResponse struct {
	Message string `json:"message" example:"Registration received. Your account is pending approval."`
	UserID  uint   `json:"user_id" example:"123"`
	Status  string `json:"status" example:"Pending"`
	Credits int    `json:"credits" example:"50"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=120" example:"researcher@university.edu"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	AccessToken  string  `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string  `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string  `json:"token_type" example:"Bearer"`
	ExpiresIn    int     `json:"expires_in" example:"86400"`
	User         UserDTO `json:"user"`
}

// RefreshTokenRequest represents the request to exchange a refresh token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// AcceptDisclaimerResponse represents the response after accepting the legal disclaimer
type AcceptDisclaimerResponse struct {
	Message    string `json:"message" example:"Disclaimer accepted"`
	AcceptedAt string `json:"accepted_at" example:"2024-01-15T16:30:00Z"`
}

// UserDTO represents user information returned in API responses
type UserDTO struct {
	ID                 uint    `json:"id" example:"123"`
	UUID               string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email              string  `json:"email" example:"researcher@university.edu"`
	Name               string  `json:"name" example:"Maria Ivanova"`
	Institution        *string `json:"institution,omitempty" example:"Faculty of Engineering"`
	Phone              *string `json:"phone,omitempty" example:"+74951234567"`
	Role               string  `json:"role" example:"Regular"`
	Credits            int     `json:"credits" example:"50"`
	Status             string  `json:"status" example:"Active"`
	DisclaimerAccepted bool    `json:"disclaimer_accepted" example:"true"`
	CreatedAt          string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// CaptchaChallengeResponse represents a generated captcha challenge
type CaptchaChallengeResponse struct {
	CaptchaID   string `json:"captcha_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	MasterImage string `json:"master_image"`
	ThumbImage  string `json:"thumb_image"`
}

// Common error codes for auth operations
const (
	ErrorUserNotFound       = "USER_NOT_FOUND"
	ErrorInvalidCredentials = "INVALID_CREDENTIALS"
	ErrorAccountNotActive   = "ACCOUNT_NOT_ACTIVE"
	ErrorEmailExists        = "EMAIL_ALREADY_EXISTS"
	ErrorCaptchaFailed      = "CAPTCHA_FAILED"
)
