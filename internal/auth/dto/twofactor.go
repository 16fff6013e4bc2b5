package dto

type VerifyTwoFactorInput struct {
	AccountID  string `json:"usuarioId" validate:"required"`
	Code       string `json:"codigo" validate:"required,numeric"`
	RememberMe bool   `json:"lembrar"`
}

type ConfigureTwoFactorInput struct {
	Enable *bool `json:"ativar" validate:"required"`
}
