package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/AgentiviseAI/AgentPlane/utils"
)

// RateLimitConfig holds the rate limiter instances used by the router.
type RateLimitConfig struct {
	// ExecuteLimiter throttles workflow executions, the most expensive
	// operation the service exposes.
	ExecuteLimiter fiber.Handler
	// StandardLimiter covers the remaining API surface.
	StandardLimiter fiber.Handler
}

// NewRateLimitConfig creates the per-client-IP limiters.
func NewRateLimitConfig() *RateLimitConfig {
	executeLimiter := limiter.New(limiter.Config{
		Max:        30,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many execute requests. Please try again later.",
			})
		},
	})

	standardLimiter := limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	})

	return &RateLimitConfig{
		ExecuteLimiter:  executeLimiter,
		StandardLimiter: standardLimiter,
	}
}
