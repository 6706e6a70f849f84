package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/sms-guard/internal/core"
	"go.uber.org/zap"
)

// Dialect selects the SQL flavour of the backing database
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// driverName maps a dialect to its database/sql driver
func (d Dialect) driverName() (string, error) {
	switch d {
	case DialectSQLite:
		return "sqlite3", nil
	case DialectMySQL:
		return "mysql", nil
	case DialectPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported store dialect: %s", d)
	}
}

// SQLStore implements the quarantine, inbox and contact collaborators on a SQL database.
// Timestamps are stored as epoch milliseconds.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// NewSQLStore opens the database and creates the tables if needed
func NewSQLStore(dialect Dialect, dsn string, logger *zap.Logger) (*SQLStore, error) {
	driver, err := dialect.driverName()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// a single connection keeps :memory: databases shared and serialises writers
		db.SetMaxOpenConns(1)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}

	s := &SQLStore{
		db:      db,
		dialect: dialect,
		logger:  logger.Named("store"),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// migrate creates tables and indexes
func (s *SQLStore) migrate() error {
	for _, stmt := range schema(s.dialect) {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func schema(d Dialect) []string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	text := "TEXT"
	key := "TEXT"
	switch d {
	case DialectMySQL:
		id = "BIGINT AUTO_INCREMENT PRIMARY KEY"
		key = "VARCHAR(255)"
	case DialectPostgres:
		id = "BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS quarantine (
			id %s,
			sender %s NOT NULL,
			body %s NOT NULL,
			received_at BIGINT NOT NULL,
			quarantined_at BIGINT NOT NULL
		)`, id, key, text),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS inbox (
			id %s,
			address %s NOT NULL,
			body %s NOT NULL,
			date BIGINT NOT NULL,
			read_flag INTEGER NOT NULL DEFAULT 0,
			seen_flag INTEGER NOT NULL DEFAULT 0,
			type INTEGER NOT NULL DEFAULT 1
		)`, id, key, text),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS contacts (
			number %s PRIMARY KEY,
			display_name %s NOT NULL
		)`, key, text),
	}

	// MySQL has no CREATE INDEX IF NOT EXISTS
	if d == DialectMySQL {
		return stmts
	}
	return append(stmts,
		`CREATE INDEX IF NOT EXISTS idx_inbox_address_date ON inbox(address, date)`,
		`CREATE INDEX IF NOT EXISTS idx_quarantine_sender ON quarantine(sender)`,
	)
}

// rebind rewrites ? placeholders into $n for Postgres
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// insert runs an INSERT and returns the new row id
func (s *SQLStore) insert(ctx context.Context, query string, args ...any) (core.Handle, error) {
	if s.dialect == DialectPostgres {
		var id int64
		if err := s.db.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return core.Handle(id), nil
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return core.Handle(id), nil
}

// InsertQuarantine appends a spam message to the quarantine table
func (s *SQLStore) InsertQuarantine(ctx context.Context, msg core.InboundMessage) (core.Handle, error) {
	h, err := s.insert(ctx, `
		INSERT INTO quarantine (sender, body, received_at, quarantined_at)
		VALUES (?, ?, ?, ?)`,
		msg.Sender, msg.Body, msg.ReceivedAt.UnixMilli(), time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert quarantine entry: %v", core.ErrStoreFailure, err)
	}

	s.logger.Debug("Quarantined message", zap.String("sender", msg.Sender), zap.Int64("id", int64(h)))
	return h, nil
}

// ExistsSince reports whether the inbox holds the same sender/body dated after since
func (s *SQLStore) ExistsSince(ctx context.Context, sender, body string, since time.Time) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id FROM inbox
		WHERE address = ? AND body = ? AND date > ?
		LIMIT 1`),
		sender, body, since.UnixMilli()).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%w: failed to query inbox: %v", core.ErrStoreFailure, err)
	}
	return true, nil
}

// InsertInbox stores an unread message in the inbox
func (s *SQLStore) InsertInbox(ctx context.Context, msg core.InboundMessage, insertedAt time.Time) (core.Handle, error) {
	h, err := s.insert(ctx, `
		INSERT INTO inbox (address, body, date, read_flag, seen_flag, type)
		VALUES (?, ?, ?, 0, 0, 1)`,
		msg.Sender, msg.Body, insertedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert inbox entry: %v", core.ErrStoreFailure, err)
	}

	s.logger.Debug("Saved message to inbox", zap.String("sender", msg.Sender), zap.Int64("id", int64(h)))
	return h, nil
}

// DisplayName looks up the contact name for a number
func (s *SQLStore) DisplayName(ctx context.Context, sender string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT display_name FROM contacts WHERE number = ?`), sender).Scan(&name)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("%w: failed to query contacts: %v", core.ErrStoreFailure, err)
	}
	return name, nil
}

// UpsertContact adds or renames a contact
func (s *SQLStore) UpsertContact(ctx context.Context, number, displayName string) error {
	var query string
	switch s.dialect {
	case DialectMySQL:
		query = `INSERT INTO contacts (number, display_name) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE display_name = VALUES(display_name)`
	default:
		query = `INSERT INTO contacts (number, display_name) VALUES (?, ?)
			ON CONFLICT (number) DO UPDATE SET display_name = excluded.display_name`
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(query), number, displayName); err != nil {
		return fmt.Errorf("%w: failed to upsert contact: %v", core.ErrStoreFailure, err)
	}
	return nil
}

// CountInbox returns the number of inbox rows for a sender/body pair
func (s *SQLStore) CountInbox(ctx context.Context, sender, body string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT COUNT(*) FROM inbox WHERE address = ? AND body = ?`), sender, body).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count inbox: %v", core.ErrStoreFailure, err)
	}
	return n, nil
}

// CountQuarantine returns the number of quarantined rows for a sender/body pair
func (s *SQLStore) CountQuarantine(ctx context.Context, sender, body string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT COUNT(*) FROM quarantine WHERE sender = ? AND body = ?`), sender, body).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count quarantine: %v", core.ErrStoreFailure, err)
	}
	return n, nil
}

// Stop closes the database connection
func (s *SQLStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.String("dialect", string(s.dialect)), zap.Error(err))
	}
}
