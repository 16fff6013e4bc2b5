package dto

type RegisterInput struct {
	Username    string `json:"nome_usuario" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"required,max=255,email"`
	Password    string `json:"senha" validate:"required"`
	DisplayName string `json:"nome" validate:"required,max=255"`
	TenantID    string `json:"empresa_id" validate:"required,uuid"`
	ActorID     string `json:"-"`
}

type RegisterOutput struct {
	Message   string `json:"mensagem"`
	AccountID string `json:"usuarioId"`
}
