package dto

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"novaSenha" validate:"required"`
}

type VerifyResetTokenOutput struct {
	Valid bool `json:"valido"`
}
