package sqlstore

import (
	"context"
	"fmt"

	"github.com/papercomputeco/sparky/pkg/store"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'USER',
		is_online BOOLEAN NOT NULL DEFAULT 0,
		is_banned BOOLEAN DEFAULT 0,
		last_seen TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shared_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		content_type TEXT,
		file_size INTEGER,
		uploaded_by TEXT NOT NULL,
		uploaded_at TIMESTAMP NOT NULL,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT,
		content TEXT,
		sender TEXT,
		sender_role TEXT,
		timestamp TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_shared_files_uploaded_at ON shared_files(uploaded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'USER',
		is_online BOOLEAN NOT NULL DEFAULT FALSE,
		is_banned BOOLEAN DEFAULT FALSE,
		last_seen TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shared_files (
		id BIGSERIAL PRIMARY KEY,
		filename TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		content_type TEXT,
		file_size BIGINT,
		uploaded_by TEXT NOT NULL,
		uploaded_at TIMESTAMPTZ NOT NULL,
		description VARCHAR(500)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		type TEXT,
		content TEXT,
		sender TEXT,
		sender_role TEXT,
		timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_shared_files_uploaded_at ON shared_files(uploaded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp)`,
}

// Migrate creates the tables read by the driver if they don't exist. It is
// used by `sparky seed` and tests; in production the owning application
// manages the schema.
func (d *Driver) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if d.driver == DriverPostgres {
		schema = postgresSchema
	}

	for _, stmt := range schema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// InsertUser stores a user and returns its id.
func (d *Driver) InsertUser(ctx context.Context, u store.User) (int64, error) {
	var lastSeen any
	if !u.LastSeen.IsZero() {
		lastSeen = u.LastSeen
	}
	return d.insert(ctx, `INSERT INTO users (username, email, role, is_online, is_banned, last_seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.Role, u.Online, u.Banned, lastSeen, u.CreatedAt)
}

// InsertFile stores file metadata and returns its id.
func (d *Driver) InsertFile(ctx context.Context, f store.SharedFile) (int64, error) {
	var size any
	if f.Size > 0 {
		size = f.Size
	}
	return d.insert(ctx, `INSERT INTO shared_files (filename, original_filename, content_type, file_size, uploaded_by, uploaded_at, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.Filename, f.OriginalFilename, f.ContentType, size, f.UploadedBy, f.UploadedAt, f.Description)
}

// InsertMessage stores a message and returns its id.
func (d *Driver) InsertMessage(ctx context.Context, m store.Message) (int64, error) {
	return d.insert(ctx, `INSERT INTO messages (type, content, sender, sender_role, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		m.Type, m.Content, m.Sender, m.SenderRole, m.Timestamp)
}

func (d *Driver) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if d.driver == DriverPostgres {
		var id int64
		if err := d.db.QueryRowContext(ctx, d.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert: %w", err)
		}
		return id, nil
	}

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	return res.LastInsertId()
}
