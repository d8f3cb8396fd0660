package database

import "github.com/AgentiviseAI/AgentPlane/config"

// SchemaVersion tracks the current schema version
const SchemaVersion = "2025.08.30.001"

// migrationsTableDDL is dialect-neutral; both engines accept it as-is.
const migrationsTableDDL = `
CREATE TABLE IF NOT EXISTS _migrations (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// The conversations table mirrors the original data model: one row per
// executed prompt, carrying the recorded workflow state. agent_id and
// workflow_id reference ControlTower-owned entities, so they are stored
// as plain identifiers without foreign keys.
const schemaPostgres = `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    chat_id TEXT NOT NULL,
    prompt TEXT NOT NULL,
    workflow_state JSONB NOT NULL,
    agent_id TEXT NOT NULL,
    workflow_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_conversations_chat_id ON conversations(chat_id);
CREATE INDEX IF NOT EXISTS idx_conversations_agent_id ON conversations(agent_id);
CREATE INDEX IF NOT EXISTS idx_conversations_workflow_id ON conversations(workflow_id);
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    chat_id TEXT NOT NULL,
    prompt TEXT NOT NULL,
    workflow_state TEXT NOT NULL,
    agent_id TEXT NOT NULL,
    workflow_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_conversations_chat_id ON conversations(chat_id);
CREATE INDEX IF NOT EXISTS idx_conversations_agent_id ON conversations(agent_id);
CREATE INDEX IF NOT EXISTS idx_conversations_workflow_id ON conversations(workflow_id);
`

// Schema returns the application DDL for the given database kind.
func Schema(dbType string) string {
	if dbType == config.DatabaseTypePostgres {
		return schemaPostgres
	}
	return schemaSQLite
}
