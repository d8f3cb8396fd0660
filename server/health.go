package server

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/AgentiviseAI/AgentPlane/cache"
	"github.com/AgentiviseAI/AgentPlane/config"
)

// StorePinger is the liveness probe against the backing store. It is
// satisfied by *sqlx.DB and *sql.DB.
type StorePinger interface {
	PingContext(ctx context.Context) error
}

// ReadyState gates health reporting on startup progress. The service
// is never observably healthy before the database initializer has
// reported success for this process lifetime.
type ReadyState struct {
	db      StorePinger
	cache   *cache.ConversationCache
	config  *config.Config
	dbReady atomic.Bool
}

// NewReadyState creates a ReadyState. The cache may be nil.
func NewReadyState(db StorePinger, convCache *cache.ConversationCache, cfg *config.Config) *ReadyState {
	return &ReadyState{
		db:     db,
		cache:  convCache,
		config: cfg,
	}
}

// MarkDatabaseReady records that the database initializer reported
// success. Called exactly once per process, before the listener binds.
func (r *ReadyState) MarkDatabaseReady() {
	r.dbReady.Store(true)
}

// IsDatabaseReady reports whether initialization completed.
func (r *ReadyState) IsDatabaseReady() bool {
	return r.dbReady.Load()
}

// CheckStore performs the per-request liveness check against the
// backing store. The result is recomputed every call; a store that
// became unreachable after startup turns the health endpoint unhealthy
// without terminating the process.
func (r *ReadyState) CheckStore(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// PoolStats returns connection pool statistics when the underlying
// probe exposes them (database.Prober does; test fakes need not).
func (r *ReadyState) PoolStats() (sql.DBStats, bool) {
	if s, ok := r.db.(interface{ Stats() sql.DBStats }); ok {
		return s.Stats(), true
	}
	return sql.DBStats{}, false
}

// Cache returns the optional conversation cache (may be nil).
func (r *ReadyState) Cache() *cache.ConversationCache {
	return r.cache
}

// Config returns the configuration snapshot.
func (r *ReadyState) Config() *config.Config {
	return r.config
}
