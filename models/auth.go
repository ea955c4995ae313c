// models/auth.go

package models

type RegisterRequest struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName,omitempty"`
	Email       string `json:"email" validate:"required,email"`
	Mobile      string `json:"mobile" validate:"required"`
	DateOfBirth string `json:"dob" validate:"required"`
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required,min=6"`
	OTP         string `json:"otp" validate:"required"`
}

type SendOTPRequest struct {
	Mobile   string `json:"mobile" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
}

type LoginRequest struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

type RecoverySendOTPRequest struct {
	Mobile string `json:"mobile" validate:"required"`
}

type GetUsernameRequest struct {
	Mobile string `json:"mobile" validate:"required"`
	OTP    string `json:"otp" validate:"required"`
}

type ResetPasswordRequest struct {
	Mobile      string `json:"mobile" validate:"required"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

type ValidateTokenRequest struct {
	Token string `json:"token" validate:"required"`
}
