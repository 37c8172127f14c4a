// ABOUTME: SQLite store for the console's local activity log.
// ABOUTME: Handles database initialization, migrations, and connection management.

package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Migration version constants
const (
	MigrationV1 = 1 // api_calls table
	MigrationV2 = 2 // composite indexes for stats and filtering
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV2

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// New opens (or creates) the database at dbPath and migrates it.
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A :memory: database is private to its connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending migrations
func (s *Store) migrate() error {
	if err := s.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := s.getCurrentMigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	s.logger.Debug("database schema",
		zap.Int("version", currentVersion),
		zap.Int("target", CurrentSchemaVersion))

	if currentVersion < MigrationV1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migration v1 failed: %w", err)
		}
	}

	if currentVersion < MigrationV2 {
		if err := s.migrateV2(); err != nil {
			return fmt.Errorf("migration v2 failed: %w", err)
		}
	}

	return nil
}

func (s *Store) createMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`)
	return err
}

func (s *Store) getCurrentMigrationVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *Store) recordMigration(version int, description string) error {
	_, err := s.db.Exec(`
		INSERT INTO schema_migrations (version, description)
		VALUES (?, ?)
	`, version, description)
	if err != nil {
		return err
	}
	s.logger.Info("applied migration", zap.Int("version", version), zap.String("description", description))
	return nil
}

// migrateV1 creates the api_calls table, one row per backend request.
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS api_calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		request_id TEXT DEFAULT '',
		resource TEXT DEFAULT '',
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		query TEXT DEFAULT '',
		status_code INTEGER,
		duration_ms INTEGER,
		error TEXT,
		request_body TEXT,
		response_body TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_api_calls_timestamp ON api_calls(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_api_calls_path ON api_calls(path);
	CREATE INDEX IF NOT EXISTS idx_api_calls_status ON api_calls(status_code);
	CREATE INDEX IF NOT EXISTS idx_api_calls_resource ON api_calls(resource);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.recordMigration(MigrationV1, "Create api_calls table and indexes")
}

// migrateV2 adds composite indexes used by the stats and filter queries.
func (s *Store) migrateV2() error {
	indexes := []string{
		// GetTopEndpoints groups by path
		"CREATE INDEX IF NOT EXISTS idx_api_calls_path_status ON api_calls(path, status_code)",
		// ResourceCallCount and ResourceErrorRate filter by resource and time
		"CREATE INDEX IF NOT EXISTS idx_api_calls_resource_timestamp ON api_calls(resource, timestamp DESC)",
		"CREATE INDEX IF NOT EXISTS idx_api_calls_resource_method_status ON api_calls(resource, method, status_code)",
		"CREATE INDEX IF NOT EXISTS idx_api_calls_request_id ON api_calls(request_id) WHERE request_id != ''",
	}

	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return s.recordMigration(MigrationV2, "Add composite indexes for stats and filtering")
}
