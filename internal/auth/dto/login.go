package dto

type LoginInput struct {
	Login      string `json:"nome_usuario"`
	Password   string `json:"senha"`
	RememberMe bool   `json:"lembrar"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

// LoginOutput is either a token response or, with RequiresTwoFactor set, a
// challenge response carrying only the account id.
type LoginOutput struct {
	Message           string         `json:"mensagem"`
	AccessToken       string         `json:"accessToken,omitempty"`
	RefreshToken      string         `json:"refreshToken,omitempty"`
	ExpiresAt         int64          `json:"expiresAt,omitempty"`
	User              *AccountOutput `json:"usuario,omitempty"`
	RequiresTwoFactor bool           `json:"requer2FA,omitempty"`
	AccountID         string         `json:"usuarioId,omitempty"`
}
