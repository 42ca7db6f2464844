package middleware

import (
	authutils "overtime-approval-backend/lib/utils/auth-utils"
	"overtime-approval-backend/models"
	apimodels "overtime-approval-backend/models/api"

	"github.com/gofiber/fiber/v2"
)

func GetUserID(ctx *fiber.Ctx) string {
	claims := authutils.GetClaims(ctx)
	if sub, exist := claims["sub"]; exist {
		if userID, ok := sub.(string); ok {
			return userID
		}
	}
	return ""
}

func GetSpaceRole(ctx *fiber.Ctx) models.UserRole {
	claims := authutils.GetClaims(ctx)
	if role, exist := claims["role"]; exist {
		if stringRole, ok := role.(string); ok && stringRole != "" {
			return models.UserRole(stringRole)
		}
	}
	return ""
}

func UserRequired() fiber.Handler {
	return func(ctx *fiber.Ctx) (err error) {
		if GetUserID(ctx) == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(apimodels.NewError("user is not identified"))
		}
		return ctx.Next()
	}
}

func SpaceAdminRequired() fiber.Handler {
	return func(ctx *fiber.Ctx) (err error) {
		if !GetSpaceRole(ctx).IsSpaceAdmin() {
			return ctx.Status(fiber.StatusForbidden).JSON(apimodels.NewError("operation not allowed"))
		}
		return ctx.Next()
	}
}
