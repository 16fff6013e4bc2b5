package handler

import (
	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/dto"
	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/service"
	autherror "github.com/giovanistefani/Construction-manager-sub001/internal/errors"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	msgResetRequested  = "Se o e-mail estiver cadastrado, você receberá as instruções para redefinir a senha"
	msgPasswordChanged = "Senha redefinida com sucesso"
	msgTwoFactorOn     = "Autenticação em dois fatores ativada"
	msgTwoFactorOff    = "Autenticação em dois fatores desativada"
	msgAccountUnlocked = "Conta desbloqueada"
	msgRegistered      = "Usuário criado com sucesso"
	msgEnableRequired  = "ativar é obrigatório"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

func (h *AuthHandler) invalidBody(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusBadRequest, msgInvalidInput)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return h.invalidBody(c)
	}

	// Capture metadata
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	out, err := h.authService.Login(c.UserContext(), input)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *AuthHandler) VerifyTwoFactor(c *fiber.Ctx) error {
	var input dto.VerifyTwoFactorInput
	if err := c.BodyParser(&input); err != nil {
		return h.invalidBody(c)
	}

	out, err := h.authService.VerifyTwoFactor(c.UserContext(), input)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return h.invalidBody(c)
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	out, err := h.authService.Refresh(c.UserContext(), input)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return h.invalidBody(c)
	}

	account, err := h.authService.Register(c.UserContext(), input)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.RegisterOutput{
		Message:   msgRegistered,
		AccountID: account.ID,
	})
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var input dto.ForgotPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return h.invalidBody(c)
	}

	if err := h.authService.RequestPasswordReset(c.UserContext(), input); err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.MessageOutput{Message: msgResetRequested})
}

func (h *AuthHandler) VerifyResetToken(c *fiber.Ctx) error {
	valid, err := h.authService.VerifyResetToken(c.UserContext(), c.Params("token"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.VerifyResetTokenOutput{Valid: valid})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var input dto.ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return h.invalidBody(c)
	}

	if err := h.authService.ResetPassword(c.UserContext(), input); err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.MessageOutput{Message: msgPasswordChanged})
}

func parseEnable(c *fiber.Ctx) (bool, error) {
	var input dto.ConfigureTwoFactorInput
	if err := c.BodyParser(&input); err != nil || input.Enable == nil {
		return false, autherror.NewValidationError(msgEnableRequired)
	}
	return *input.Enable, nil
}

func twoFactorMessage(enabled bool) string {
	if enabled {
		return msgTwoFactorOn
	}
	return msgTwoFactorOff
}

func (h *AuthHandler) ConfigureTwoFactor(c *fiber.Ctx) error {
	enable, err := parseEnable(c)
	if err != nil {
		return h.writeError(c, err)
	}

	if err := h.authService.ConfigureTwoFactor(c.UserContext(), claimsFrom(c), enable); err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.MessageOutput{Message: twoFactorMessage(enable)})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	profile, err := h.authService.Me(c.UserContext(), claimsFrom(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

func (h *AuthHandler) UnlockAccount(c *fiber.Ctx) error {
	if err := h.authService.UnlockAccount(c.UserContext(), claimsFrom(c), c.Params("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.MessageOutput{Message: msgAccountUnlocked})
}

func (h *AuthHandler) SetTwoFactor(c *fiber.Ctx) error {
	enable, err := parseEnable(c)
	if err != nil {
		return h.writeError(c, err)
	}

	if err := h.authService.SetTwoFactor(c.UserContext(), claimsFrom(c), c.Params("id"), enable); err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.MessageOutput{Message: twoFactorMessage(enable)})
}

func (h *AuthHandler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}
