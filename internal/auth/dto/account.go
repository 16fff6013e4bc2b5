package dto

import "time"

// AccountOutput is the public profile returned next to tokens.
type AccountOutput struct {
	ID               string    `json:"id"`
	Username         string    `json:"nome_usuario"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"nome"`
	TenantID         string    `json:"empresa_id"`
	Role             string    `json:"perfil"`
	TwoFactorEnabled bool      `json:"twoFactorAtivo"`
	CreatedAt        time.Time `json:"criadoEm"`
}

type MessageOutput struct {
	Message string `json:"mensagem"`
}

type ErrorOutput struct {
	Message    string   `json:"mensagem"`
	Errors     []string `json:"erros,omitempty"`
	RetryAfter int      `json:"tentarNovamenteEm,omitempty"`
}
