package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Config holds SQLite connection settings.
type Config struct {
	// DSN is the database file path; ":memory:" keeps the database in memory.
	DSN string

	// BusyTimeout sets how long to wait for database locks.
	BusyTimeout time.Duration

	// JournalMode sets the SQLite journal mode (WAL, DELETE, TRUNCATE, etc.).
	JournalMode string

	// Synchronous sets the synchronous mode (FULL, NORMAL, OFF).
	Synchronous string

	// MaxOpenConns bounds the pool. SQLite serialises writers anyway, and an
	// in-memory database only exists on a single connection.
	MaxOpenConns int
}

// DefaultConfig returns settings suited to a single scheduler process.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:          dsn,
		BusyTimeout:  5 * time.Second,
		JournalMode:  "WAL",
		Synchronous:  "NORMAL",
		MaxOpenConns: 1,
	}
}

// Validate checks the configuration before a connection is attempted.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("sqlite: DSN is required")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy timeout must not be negative")
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("sqlite: max open connections must not be negative")
	}
	return nil
}

func (c Config) inMemory() bool {
	return c.DSN == ":memory:"
}

// connectionString adds the pragmas as _pragma parameters so every pooled
// connection is configured, not just the first one.
func (c Config) connectionString() string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if c.JournalMode != "" && !c.inMemory() {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", c.JournalMode))
	}
	if c.Synchronous != "" {
		params.Add("_pragma", fmt.Sprintf("synchronous(%s)", c.Synchronous))
	}
	return "file:" + c.DSN + "?" + params.Encode()
}

func openDB(c Config) (*sql.DB, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if !c.inMemory() {
		if err := os.MkdirAll(filepath.Dir(c.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", c.connectionString())
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	maxConns := c.MaxOpenConns
	if c.inMemory() || maxConns == 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}
	return db, nil
}
