// Package sqlstore implements the store collaborators on top of database/sql,
// backed either by SQLite (mattn/go-sqlite3) or PostgreSQL (pgx).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/sparky/pkg/store"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Driver reads users, files and messages from a relational database.
type Driver struct {
	db     *sql.DB
	driver string
}

// Open returns a Driver for the given driver name and DSN. CGO_ENABLED=1 is
// required for sqlite.
func Open(ctx context.Context, driver, dsn string) (*Driver, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case DriverSQLite:
		db, err = openSQLite(dsn)
	case DriverPostgres:
		db, err = openPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return &Driver{db: db, driver: driver}, nil
}

func openSQLite(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite single-writer: cap pool. This also keeps :memory: on one connection.
	db.SetMaxOpenConns(1)
	return db, nil
}

func openPostgres(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("a connection url is required for the postgres driver")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	return db, nil
}

// Collaborators returns the driver wired as all three tool data sources.
func (d *Driver) Collaborators() store.Collaborators {
	return store.Collaborators{Users: d, Files: d, Messages: d}
}

// DB returns the underlying database handle.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

const userColumns = `id, username, email, role, is_online, COALESCE(is_banned, FALSE), last_seen, created_at`

func (d *Driver) FindByUsername(ctx context.Context, username string) (*store.User, error) {
	row := d.db.QueryRowContext(ctx, d.rebind(`SELECT `+userColumns+` FROM users WHERE username = ?`), username)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound{Kind: "user", Key: username}
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", username, err)
	}
	return u, nil
}

func (d *Driver) ListUsers(ctx context.Context) ([]store.User, error) {
	return d.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

func (d *Driver) ListByOnline(ctx context.Context, online bool) ([]store.User, error) {
	return d.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE is_online = ? ORDER BY id`, online)
}

func (d *Driver) queryUsers(ctx context.Context, query string, args ...any) ([]store.User, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []store.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*store.User, error) {
	var (
		u        store.User
		lastSeen sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.Online, &u.Banned, &lastSeen, &u.CreatedAt); err != nil {
		return nil, err
	}
	if lastSeen.Valid {
		u.LastSeen = lastSeen.Time
	}
	return &u, nil
}

func (d *Driver) RecentFiles(ctx context.Context, limit int) ([]store.SharedFile, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT id, filename, original_filename, COALESCE(content_type, ''), COALESCE(file_size, 0),
		       uploaded_by, uploaded_at, COALESCE(description, '')
		FROM shared_files
		ORDER BY uploaded_at DESC, id DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	files := []store.SharedFile{}
	for rows.Next() {
		var f store.SharedFile
		if err := rows.Scan(&f.ID, &f.Filename, &f.OriginalFilename, &f.ContentType, &f.Size,
			&f.UploadedBy, &f.UploadedAt, &f.Description); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (d *Driver) RecentMessages(ctx context.Context, limit int) ([]store.Message, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT id, COALESCE(type, ''), COALESCE(content, ''), COALESCE(sender, ''),
		       COALESCE(sender_role, ''), timestamp
		FROM messages
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []store.Message{}
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.Type, &m.Content, &m.Sender, &m.SenderRole, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// rebind rewrites ? placeholders to $n for postgres.
func (d *Driver) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
