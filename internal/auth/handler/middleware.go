package handler

import (
	"strings"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/service"
	autherror "github.com/giovanistefani/Construction-manager-sub001/internal/errors"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const localsClaims = "claims"

// authenticate reads "Authorization: Bearer <token>" and verifies it as an
// access token.
func (h *AuthHandler) authenticate(c *fiber.Ctx) (*service.JWTCustomClaims, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, autherror.ErrTokenMalformed
	}
	return h.authService.ValidateToken(parts[1])
}

func (h *AuthHandler) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := h.authenticate(c)
		if err != nil {
			return h.writeError(c, err)
		}
		c.Locals(localsClaims, claims)
		return c.Next()
	}
}

func (h *AuthHandler) RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := h.authenticate(c)
		if err != nil {
			return h.writeError(c, err)
		}
		if claims.Role != role {
			return h.writeError(c, autherror.ErrForbidden)
		}
		c.Locals(localsClaims, claims)
		return c.Next()
	}
}

func claimsFrom(c *fiber.Ctx) *service.JWTCustomClaims {
	claims, _ := c.Locals(localsClaims).(*service.JWTCustomClaims)
	return claims
}

// RequestLogger logs one line per request with the id set by the requestid
// middleware.
func RequestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if id, ok := c.Locals("requestid").(string); ok {
			fields = append(fields, zap.String("request_id", id))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		switch status := c.Response().StatusCode(); {
		case status >= fiber.StatusInternalServerError:
			logger.Error("request completed", fields...)
		case status >= fiber.StatusBadRequest:
			logger.Warn("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
		return err
	}
}
