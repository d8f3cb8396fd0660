// Package startup sequences process launch: database initialization
// first, serving second. The HTTP listener is never started when
// initialization fails; the process exits with the outcome's code and
// lets the container orchestrator restart it.
package startup

import (
	"github.com/jmoiron/sqlx"

	"github.com/AgentiviseAI/AgentPlane/config"
	"github.com/AgentiviseAI/AgentPlane/database"
	"github.com/AgentiviseAI/AgentPlane/utils"
)

// ServeFunc runs the serving phase against the initialized store. It
// blocks until the server stops.
type ServeFunc func(db *sqlx.DB) error

// Run performs the two startup phases in order. serve is invoked only
// when the database initializer reports Success; on any other outcome
// the store handle is already closed and serve never runs.
func Run(cfg *config.Config, serve ServeFunc) (database.Outcome, error) {
	utils.LogInfo("Starting database initialization",
		"database_type", cfg.DatabaseType,
		"attempts", cfg.ConnectAttempts,
	)

	db, outcome, err := database.Setup(cfg)
	if outcome != database.Success {
		utils.LogError("Database initialization failed", err,
			"outcome", outcome.String(),
		)
		return outcome, err
	}
	defer func() { _ = db.Close() }()

	utils.LogInfo("Database initialization succeeded", "outcome", outcome.String())
	return outcome, serve(db)
}
