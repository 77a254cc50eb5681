// Package localstate provides the embedded state store that replaces
// the browser-held flags and records: intro-shown markers, admin
// sessions, playground registrations, and the export journal.
package localstate

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
)

// DB wraps the standard SQL connection for the state store
type DB struct {
	*sql.DB
}

// NewConnection opens the state store. DSNs beginning with libsql:// or
// https:// select the libsql driver; anything else is a local sqlite
// file.
func NewConnection(driverName, dataSourceName string, logger *logging.ChanneledLogger) (*DB, error) {
	if strings.HasPrefix(dataSourceName, "libsql://") || strings.HasPrefix(dataSourceName, "https://") {
		driverName = "libsql"
	}

	start := time.Now()
	logger.State().Debug("Opening state store", "driver", driverName)

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		logger.State().Error("Failed to open state store", "error", err.Error(), "driver", driverName)
		return nil, err
	}

	if err = db.Ping(); err != nil {
		logger.State().Error("State store ping failed", "error", err.Error(), "driver", driverName)
		return nil, err
	}

	logger.State().Info("State store connected", "driver", driverName, "duration", time.Since(start))
	return &DB{db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS client_flags (
	client_id TEXT NOT NULL,
	flag TEXT NOT NULL,
	value TEXT NOT NULL DEFAULT '1',
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (client_id, flag)
);

CREATE TABLE IF NOT EXISTS admin_sessions (
	token_id TEXT PRIMARY KEY,
	issued_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS playground_registrations (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	company TEXT,
	registered_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_playground_registrations_client
	ON playground_registrations(client_id);

CREATE TABLE IF NOT EXISTS export_journal (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	video_id TEXT,
	format TEXT,
	exported_at TIMESTAMP NOT NULL
);
`

// Migrate creates the state store tables when missing
func (db *DB) Migrate() error {
	_, err := db.Exec(schema)
	return err
}
