package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/AgentiviseAI/AgentPlane/metrics"
	"github.com/AgentiviseAI/AgentPlane/utils"
)

// Service identity reported by the health and root endpoints.
const (
	ServiceName    = "Agent API Server"
	ServiceVersion = "1.0.0"
)

// healthCheckTimeout bounds the per-request store liveness check so the
// health endpoint answers well inside the prober's 10s timeout.
const healthCheckTimeout = 2 * time.Second

// CreateFiberApp creates and configures the Fiber application with the
// baseline middleware stack and the health endpoints.
func CreateFiberApp(startTime time.Time, readyState *ReadyState) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:                 ServiceName,
		DisableStartupMessage:   false,
		BodyLimit:               512 * 1024, // 512KB body size limit
		EnableTrustedProxyCheck: utils.TrustProxyHeaders.Load(),
		ProxyHeader:             fiber.HeaderXForwardedFor,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			} else {
				// Log server errors but don't expose details
				utils.LogError("HTTP_ERROR", err,
					"method", c.Method(),
					"path", c.Path(),
					"ip", c.IP(),
				)
				metrics.IncrementError("internal", "http")
			}

			return c.Status(code).JSON(fiber.Map{"error": message})
		},
	})

	// Panic recovery with error logging
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			utils.LogError("PANIC RECOVERED", fmt.Errorf("%v", e),
				"method", c.Method(),
				"path", c.Path(),
				"ip", c.IP(),
				"user_agent", c.Get("User-Agent"),
			)
		},
	}))

	// Request ID middleware for error correlation
	app.Use(func(c *fiber.Ctx) error {
		requestID := uuid.New().String()
		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)
		return c.Next()
	})

	// Request logging
	app.Use(logger.New(logger.Config{
		Output: utils.InfoLogger.Writer(),
		Format: "[${time}] ${locals:request_id} ${status} - ${method} ${path} - ${ip} - ${latency}\n",
	}))

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Root banner
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": ServiceName + " is running"})
	})

	api := app.Group("/api/v1")

	// Live endpoint - just checks if the process is up
	api.Get("/health/live", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "live",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startTime).String(),
		})
	})

	// Health endpoint - reflects current store reachability. Recomputed
	// per request; unhealthy responses do not terminate the process.
	api.Get("/health", func(c *fiber.Ctx) error {
		health := fiber.Map{
			"service":     ServiceName,
			"version":     ServiceVersion,
			"environment": readyState.Config().Environment,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"uptime":      time.Since(startTime).String(),
		}

		if !readyState.IsDatabaseReady() {
			health["status"] = "initializing"
			return c.Status(fiber.StatusServiceUnavailable).JSON(health)
		}

		ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
		defer cancel()

		if err := readyState.CheckStore(ctx); err != nil {
			utils.LogError("HEALTH_CHECK", err, "component", "database")
			metrics.SetDatabaseHealthy(false)
			metrics.IncrementError("database", "health_check")
			health["status"] = "unhealthy"
			health["error"] = "database check failed"
			return c.Status(fiber.StatusServiceUnavailable).JSON(health)
		}

		metrics.SetDatabaseHealthy(true)
		if stats, ok := readyState.PoolStats(); ok {
			metrics.UpdateDatabaseConnections(stats.InUse, stats.Idle)
		}

		health["status"] = "healthy"
		return c.JSON(health)
	})

	return app
}
