package handler

import (
	"errors"
	"strconv"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/dto"
	autherror "github.com/giovanistefani/Construction-manager-sub001/internal/errors"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	msgInvalidInput       = "Dados inválidos"
	msgInvalidCredentials = "Credenciais inválidas"
	msgAccountLocked      = "Conta bloqueada temporariamente por excesso de tentativas"
	msgInvalidCode        = "Código inválido ou expirado"
	msgInvalidToken       = "Token inválido ou expirado"
	msgAccountNotFound    = "Usuário não encontrado"
	msgTenantNotFound     = "Empresa não encontrada"
	msgAlreadyExists      = "Nome de usuário ou e-mail já cadastrado"
	msgForbidden          = "Acesso negado"
	msgInternal           = "Erro interno do servidor"
)

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorOutput{Message: message})
}

// writeError maps service errors onto the HTTP contract. Anything unexpected
// is logged and answered with a generic 500.
func (h *AuthHandler) writeError(c *fiber.Ctx, err error) error {
	var validationErr *autherror.ValidationError
	var lockedErr *autherror.LockedError

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorOutput{
			Message: msgInvalidInput,
			Errors:  validationErr.Reasons,
		})
	case errors.As(err, &lockedErr):
		retryAfter := lockedErr.RetryAfterSeconds()
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return c.Status(fiber.StatusLocked).JSON(dto.ErrorOutput{
			Message:    msgAccountLocked,
			RetryAfter: retryAfter,
		})
	case errors.Is(err, autherror.ErrInvalidCredentials):
		return errorJSON(c, fiber.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, autherror.ErrInvalidTwoFactorCode):
		return errorJSON(c, fiber.StatusUnauthorized, msgInvalidCode)
	case autherror.IsTokenError(err):
		return errorJSON(c, fiber.StatusUnauthorized, msgInvalidToken)
	case errors.Is(err, autherror.ErrForbidden):
		return errorJSON(c, fiber.StatusForbidden, msgForbidden)
	case errors.Is(err, autherror.ErrAccountNotFound):
		return errorJSON(c, fiber.StatusNotFound, msgAccountNotFound)
	case errors.Is(err, autherror.ErrTenantNotFound):
		return errorJSON(c, fiber.StatusNotFound, msgTenantNotFound)
	case errors.Is(err, autherror.ErrAccountAlreadyExists):
		return errorJSON(c, fiber.StatusConflict, msgAlreadyExists)
	case errors.Is(err, autherror.ErrInvalidResetToken):
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidToken)
	default:
		h.logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return errorJSON(c, fiber.StatusInternalServerError, msgInternal)
	}
}
