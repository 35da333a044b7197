// Package store implements the file-backed transaction store on SQLite.
//
// A TransactionStore owns at most one open database file. It starts
// unloaded; LoadDatabase or CreateDatabase opens a file (closing the previous
// one first) and every data operation fails with ErrNotLoaded until then.
package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"

	// DefaultFilename is used when no database path is configured.
	DefaultFilename = "transactions.db"
)

var sqliteHeader = []byte("SQLite format 3\x00")

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// TransactionStore is the single owner of the current database connection.
// Construct one per process and share the pointer.
type TransactionStore struct {
	mu   sync.RWMutex
	db   *sqlx.DB
	path string

	log zerolog.Logger
	now func() time.Time
}

// Option configures a TransactionStore.
type Option func(*TransactionStore)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(log zerolog.Logger) Option {
	return func(s *TransactionStore) { s.log = log }
}

// WithClock overrides the clock used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *TransactionStore) { s.now = now }
}

// New returns an unloaded store.
func New(opts ...Option) *TransactionStore {
	s := &TransactionStore{
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultPath returns $TXDB_PATH, or transactions.db in the working directory.
func DefaultPath() string {
	if p := os.Getenv("TXDB_PATH"); p != "" {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return DefaultFilename
	}
	return filepath.Join(wd, DefaultFilename)
}

// LoadDatabase opens an existing database file. The file is checked before
// the current connection is touched, so a missing or foreign file leaves the
// store as it was.
func (s *TransactionStore) LoadDatabase(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("LoadDatabase: %w: empty path", ErrInvalidArgument)
	}
	if err := checkDatabaseFile(path); err != nil {
		return fmt.Errorf("LoadDatabase: %w: %w", ErrIO, err)
	}
	if err := checkStoreTables(ctx, path); err != nil {
		return fmt.Errorf("LoadDatabase: %w: %w", ErrIO, err)
	}
	return s.switchTo(ctx, "LoadDatabase", path)
}

// CreateDatabase opens the file at path, creating it (and its parent
// directories) if absent.
func (s *TransactionStore) CreateDatabase(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("CreateDatabase: %w: empty path", ErrInvalidArgument)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("CreateDatabase: create directory: %w: %w", ErrIO, err)
		}
	}
	return s.switchTo(ctx, "CreateDatabase", path)
}

// CloseDatabase releases the connection. Closing an unloaded store is a no-op.
func (s *TransactionStore) CloseDatabase() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeLocked(); err != nil {
		return fmt.Errorf("CloseDatabase: %w: %w", ErrIO, err)
	}
	return nil
}

// IsLoaded reports whether a database is open.
func (s *TransactionStore) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// CurrentPath returns the path of the open database.
func (s *TransactionStore) CurrentPath() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return "", false
	}
	return s.path, true
}

// switchTo closes the current connection and opens path. A failure after the
// old connection is closed leaves the store unloaded.
func (s *TransactionStore) switchTo(ctx context.Context, op, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeLocked(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close previous database cleanly")
	}

	db, err := open(ctx, path, s.now().Unix())
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
	}

	s.db = db
	s.path = path
	s.log.Info().Str("path", path).Str("op", op).Msg("Database opened")
	return nil
}

func (s *TransactionStore) closeLocked() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.log.Info().Str("path", s.path).Msg("Database closed")
	s.db = nil
	s.path = ""
	return err
}

// conn returns the open connection or ErrNotLoaded. Callers must hold s.mu.
func (s *TransactionStore) conn(op string) (*sqlx.DB, error) {
	if s.db == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotLoaded)
	}
	return s.db, nil
}

func open(ctx context.Context, path string, now int64) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	// One connection: statements are serialized and a transaction owns the file.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %q: %w", path, err)
	}
	if err := ensureSchema(ctx, db, now); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// checkDatabaseFile accepts an existing regular file that is empty or starts
// with the SQLite header.
func checkDatabaseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%q is a directory", path)
	}
	if info.Size() == 0 {
		return nil
	}

	header := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, sqliteHeader) {
		return fmt.Errorf("%q is not a transaction database", path)
	}
	return nil
}

// checkStoreTables accepts a database with no tables or one that already has
// a transactions table. Anything else belongs to another application and must
// not be migrated.
func checkStoreTables(ctx context.Context, path string) error {
	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer db.Close()

	var tables []string
	if err := db.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`); err != nil {
		return fmt.Errorf("inspect %q: %w", path, err)
	}
	if len(tables) == 0 {
		return nil
	}
	for _, name := range tables {
		if name == "transactions" {
			return nil
		}
	}
	return fmt.Errorf("%q is not a transaction database (tables: %v)", path, tables)
}
