package main

import (
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/AgentiviseAI/AgentPlane/cache"
	"github.com/AgentiviseAI/AgentPlane/config"
	"github.com/AgentiviseAI/AgentPlane/crypto"
	"github.com/AgentiviseAI/AgentPlane/database"
	"github.com/AgentiviseAI/AgentPlane/server"
	"github.com/AgentiviseAI/AgentPlane/services"
	"github.com/AgentiviseAI/AgentPlane/startup"
	"github.com/AgentiviseAI/AgentPlane/store"
	"github.com/AgentiviseAI/AgentPlane/utils"
)

func main() {
	startTime := time.Now()
	utils.InitLogging()

	cfg, err := config.Load()
	if err != nil {
		utils.LogError("Configuration invalid", err)
		os.Exit(1)
	}
	utils.LogInfo("Configuration loaded",
		"environment", cfg.Environment,
		"database_type", cfg.DatabaseType,
		"addr", cfg.Addr(),
	)
	utils.TrustProxyHeaders.Store(cfg.TrustProxy)

	outcome, err := startup.Run(cfg, func(db *sqlx.DB) error {
		convCache := cache.New(cfg.RedisURL, cfg.RedisPassword, cfg.CacheTTL)
		defer func() { _ = convCache.Close() }()

		cryptoService := crypto.NewService(cfg.SecretKey)
		convStore := store.NewConversationStore(db, cryptoService)
		workflows := services.NewWorkflowService(convStore, convCache, services.EchoRunner{})

		readyState := server.NewReadyState(database.Prober{DB: db}, convCache, cfg)
		app := server.CreateFiberApp(startTime, readyState)
		setupRoutes(app, workflows, cfg)

		readyState.MarkDatabaseReady()
		return server.Listen(app, cfg.Host, cfg.Port, startTime)
	})
	if err != nil {
		utils.LogError("Server stopped", err, "outcome", outcome.String())
		if code := outcome.ExitCode(); code != 0 {
			os.Exit(code)
		}
		os.Exit(1)
	}
}
