package dto

type RefreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	IPAddress    string `json:"-"`
	UserAgent    string `json:"-"`
}

type TokenOutput struct {
	Message      string         `json:"mensagem"`
	Token        string         `json:"token,omitempty"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresAt    int64          `json:"expiresAt"`
	User         *AccountOutput `json:"usuario"`
}
