package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	neturl "net/url"
	"regexp"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/AgentiviseAI/AgentPlane/config"
)

// Outcome is the terminal result of the database initializer. Exactly
// one outcome is produced per process start and the server is launched
// only on Success.
type Outcome int

const (
	Success Outcome = iota
	ConnectionFailure
	SchemaFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case ConnectionFailure:
		return "connection_failure"
	case SchemaFailure:
		return "schema_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ExitCode maps the outcome to the process exit code the container
// orchestrator observes.
func (o Outcome) ExitCode() int {
	switch o {
	case Success:
		return 0
	case ConnectionFailure:
		return 2
	case SchemaFailure:
		return 3
	default:
		return 1
	}
}

// Connection retry shape: exponential backoff starting at retryBaseDelay,
// doubling per attempt, capped at retryMaxDelay. The attempt ceiling
// comes from the configuration snapshot (DB_CONNECT_ATTEMPTS).
const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 5 * time.Second

	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 1 * time.Hour
	connectTimeout  = 5 * time.Second
)

var identRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Setup connects to the backing store selected by the configuration and
// brings its schema to the expected state. The store may still be
// starting in a multi-container deployment, so connectivity is retried
// with bounded backoff before a ConnectionFailure is declared. Schema
// setup is idempotent: re-running against an initialized store is a
// no-op and reports Success.
func Setup(cfg *config.Config) (*sqlx.DB, Outcome, error) {
	driver, dsn, err := driverAndDSN(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, ConnectionFailure, fmt.Errorf("resolving database driver: %w", err)
	}

	if cfg.DatabaseType == config.DatabaseTypePostgres {
		ensureDatabaseExists(cfg.DatabaseURL)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, ConnectionFailure, fmt.Errorf("opening %s connection: %w", cfg.DatabaseType, err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := pingWithRetry(db.Ping, cfg.ConnectAttempts); err != nil {
		_ = db.Close()
		return nil, ConnectionFailure, fmt.Errorf("database unreachable after %d attempts: %w", cfg.ConnectAttempts, err)
	}

	if err := applySchema(context.Background(), db, cfg.DatabaseType); err != nil {
		_ = db.Close()
		return nil, SchemaFailure, fmt.Errorf("applying schema: %w", err)
	}

	log.Println("Database setup completed successfully")
	return db, Success, nil
}

// pingWithRetry retries the ping until it succeeds or the attempt
// ceiling is reached. Extra retry options are accepted so tests can
// shrink the delays.
func pingWithRetry(ping func() error, attempts int, opts ...retry.Option) error {
	return retry.Do(
		ping,
		append([]retry.Option{
			retry.Attempts(uint(attempts)),
			retry.Delay(retryBaseDelay),
			retry.MaxDelay(retryMaxDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				log.Printf("Database not reachable (attempt %d/%d): %v", n+1, attempts, err)
			}),
		}, opts...)...,
	)
}

// applySchema runs the version-tracked schema setup. The version check
// makes the common restart path a single SELECT; the DDL itself is
// written with IF NOT EXISTS so a concurrent or interrupted run is
// still safe to repeat.
func applySchema(ctx context.Context, db *sqlx.DB, dbType string) error {
	if _, err := db.ExecContext(ctx, migrationsTableDDL); err != nil {
		return fmt.Errorf("creating migration tracking table: %w", err)
	}

	current, err := currentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current == SchemaVersion {
		log.Printf("Database schema is up to date (version: %s), skipping migrations", current)
		return nil
	}

	log.Printf("Running database migrations (current: %q, target: %s)...", current, SchemaVersion)
	start := time.Now()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // safe after commit
	}()

	// Statements run one at a time: the pgx database/sql driver
	// prepares each query, and prepared statements cannot hold more
	// than one command.
	for _, stmt := range strings.Split(Schema(dbType), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing migrations: %w", err)
		}
	}
	query := tx.Rebind("INSERT INTO _migrations (version) VALUES (?) ON CONFLICT (version) DO NOTHING")
	if _, err := tx.ExecContext(ctx, query, SchemaVersion); err != nil {
		return fmt.Errorf("recording migration version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration transaction: %w", err)
	}

	log.Printf("Database migrations completed in %v", time.Since(start))
	return nil
}

func currentSchemaVersion(ctx context.Context, db *sqlx.DB) (string, error) {
	var version string
	err := db.GetContext(ctx, &version, "SELECT version FROM _migrations ORDER BY applied_at DESC LIMIT 1")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("reading migration version: %w", err)
	}
	return version, nil
}

// driverAndDSN maps the configured database kind to a database/sql
// driver name and data source.
func driverAndDSN(dbType, dbURL string) (string, string, error) {
	switch dbType {
	case config.DatabaseTypePostgres:
		return "pgx", dbURL, nil
	case config.DatabaseTypeSQLite:
		return "sqlite3", sqliteDSN(dbURL), nil
	default:
		return "", "", fmt.Errorf("unsupported database type %q", dbType)
	}
}

// sqliteDSN strips the URL-style prefixes the original deployment used
// (sqlite:///./agent_plane.db) down to the plain file path go-sqlite3
// expects. Plain paths and :memory: pass through unchanged.
func sqliteDSN(dbURL string) string {
	for _, prefix := range []string{"sqlite:///", "sqlite://"} {
		if strings.HasPrefix(dbURL, prefix) {
			return strings.TrimPrefix(dbURL, prefix)
		}
	}
	return dbURL
}

// ensureDatabaseExists creates the target postgres database via an
// admin connection when it is missing. Best effort: a failure here is
// logged and the normal connection path decides whether startup fails.
func ensureDatabaseExists(dbURL string) {
	adminURL, dbName := adminURLAndDBName(dbURL)
	if dbName == "" || dbName == "postgres" {
		return
	}

	safe, ok := safePgIdent(dbName)
	if !ok {
		log.Printf("Warning: database name %q contains unsupported characters; skipping CREATE DATABASE step", dbName)
		return
	}

	adminDB, err := sql.Open("pgx", adminURL)
	if err != nil {
		log.Printf("Note: could not open admin connection for CREATE DATABASE: %v", err)
		return
	}
	defer func() { _ = adminDB.Close() }()

	if _, err := adminDB.Exec("CREATE DATABASE " + safe); err != nil && !strings.Contains(strings.ToLower(err.Error()), "already exists") {
		log.Printf("Note: CREATE DATABASE may have failed (continuing if it exists): %v", err)
	}
}

// adminURLAndDBName builds an admin URL pointing to the 'postgres' database and returns the target db name
func adminURLAndDBName(dbURL string) (string, string) {
	u, err := neturl.Parse(dbURL)
	if err != nil {
		return dbURL, ""
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	u.Path = "/postgres"
	return u.String(), dbName
}

// safePgIdent validates the identifier for use in CREATE DATABASE
func safePgIdent(name string) (string, bool) {
	if identRe.MatchString(name) {
		return name, true
	}
	return "", false
}

// HealthCheck performs a lightweight liveness query against the store.
// It is recomputed on every call; nothing is cached.
func HealthCheck(ctx context.Context, db *sqlx.DB) error {
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Prober adapts a store handle to the probe interface the server's
// readiness gate uses. The probe issues a real query rather than a
// bare connection ping, so a store that accepts connections but cannot
// answer queries reads as unhealthy.
type Prober struct {
	DB *sqlx.DB
}

func (p Prober) PingContext(ctx context.Context) error {
	return HealthCheck(ctx, p.DB)
}

// Stats exposes the connection pool statistics for metrics reporting.
func (p Prober) Stats() sql.DBStats {
	return p.DB.Stats()
}
