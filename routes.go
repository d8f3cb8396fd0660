package main

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/AgentiviseAI/AgentPlane/config"
	"github.com/AgentiviseAI/AgentPlane/handlers"
	"github.com/AgentiviseAI/AgentPlane/metrics"
	"github.com/AgentiviseAI/AgentPlane/middleware"
	appserver "github.com/AgentiviseAI/AgentPlane/server"
	"github.com/AgentiviseAI/AgentPlane/services"
)

// setupRoutes configures the API routes and middleware on top of the
// baseline Fiber app (which already carries the health endpoints).
func setupRoutes(app *fiber.App, workflows *services.WorkflowService, config *appconfig.Config) {
	// Security headers
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge: func() int {
			if config.IsProd() {
				return 31536000
			}
			return 0
		}(),
		HSTSPreloadEnabled: config.IsProd(),
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	// CORS configuration
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(config.AllowedOrigins, ","),
		AllowCredentials: true,
		AllowHeaders: strings.Join([]string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderUserID, middleware.HeaderService,
			middleware.HeaderAgentID, middleware.HeaderOrganization,
		}, ", "),
		AllowMethods: "GET, POST, OPTIONS",
	}))

	// Optional Prometheus metrics
	if config.EnableMetrics {
		app.Use(metrics.PrometheusMiddleware())
		app.Get("/metrics", appserver.WrapHTTPHandler(promhttp.Handler()))
	}

	rateLimits := middleware.NewRateLimitConfig()

	agentHandler := handlers.NewAgentHandler(workflows)
	convHandler := handlers.NewConversationsHandler(workflows)

	api := app.Group("/api/v1")

	// Authenticated agent runtime routes
	authed := api.Group("", middleware.Authenticate(config), middleware.AgentContext(config))
	authed.Post("/execute", rateLimits.ExecuteLimiter, agentHandler.Execute)
	authed.Get("/conversations/:chat_id", rateLimits.StandardLimiter, convHandler.GetHistory)
}
