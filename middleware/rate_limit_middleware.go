package middleware

import (
	ratelimit "overtime-approval-backend/lib/rate-limit"
	apimodels "overtime-approval-backend/models/api"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// RateLimit limits requests per client IP.
func RateLimit(limiter ratelimit.Provider) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if limiter == nil {
			return ctx.Next()
		}
		if !limiter.Allow(ctx.IP()) {
			log.
				WithField("ip", ctx.IP()).
				WithField("path", ctx.Path()).
				Warn("rate limit exceeded")
			return ctx.Status(fiber.StatusTooManyRequests).
				JSON(apimodels.NewError("too many requests, try again later"))
		}
		return ctx.Next()
	}
}
