package handler

import (
	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler) {
	app.Get("/health", h.Health)

	auth := app.Group("/api/v1/auth")
	auth.Post("/login", h.Login)
	auth.Post("/2fa/verify", h.VerifyTwoFactor)
	auth.Post("/refresh", h.Refresh)
	auth.Post("/register", h.Register)
	auth.Post("/password/forgot", h.ForgotPassword)
	auth.Get("/password/reset/:token", h.VerifyResetToken)
	auth.Post("/password/reset", h.ResetPassword)

	// Bearer-protected endpoints
	auth.Put("/2fa", h.RequireAuth(), h.ConfigureTwoFactor)
	auth.Get("/me", h.RequireAuth(), h.Me)

	// Admin-only endpoints
	admin := app.Group("/api/v1/admin", h.RequireRole(domain.RoleAdmin))
	admin.Post("/accounts/:id/unlock", h.UnlockAccount)
	admin.Put("/accounts/:id/2fa", h.SetTwoFactor)
}
