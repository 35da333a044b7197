package store

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

const createSchemaMigrationsSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	checksum   TEXT NOT NULL,
	applied_at INTEGER NOT NULL
)`

// Migration is one versioned schema change.
type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int       `db:"version" json:"version"`
	Name      string    `db:"name" json:"name"`
	Checksum  string    `db:"checksum" json:"checksum"`
	AppliedAt time.Time `db:"-" json:"applied_at"`

	AppliedAtUnix int64 `db:"applied_at" json:"-"`
}

// readMigrations loads every migrations/NNNN_name.sql file in version order.
func readMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			return nil, fmt.Errorf("invalid migration filename: %s", file.Name())
		}
		version, _ := strconv.Atoi(matches[1])
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, prev, file.Name())
		}
		seen[version] = file.Name()

		content, err := fs.ReadFile(fsys, "migrations/"+file.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func appliedMigrations(ctx context.Context, q sqlx.QueryerContext) ([]AppliedMigration, error) {
	var applied []AppliedMigration
	err := sqlx.SelectContext(ctx, q, &applied,
		"SELECT version, name, checksum, applied_at FROM schema_migrations ORDER BY version ASC")
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	for i := range applied {
		applied[i].AppliedAt = time.Unix(applied[i].AppliedAtUnix, 0).UTC()
	}
	return applied, nil
}

// applyMigrations runs the migrations not yet recorded, each in its own
// transaction together with its schema_migrations row. An applied migration
// whose file has since changed is an error. It returns the versions applied.
func applyMigrations(ctx context.Context, db *sqlx.DB, migrations []Migration, now int64) ([]int, error) {
	if _, err := db.ExecContext(ctx, createSchemaMigrationsSQL); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, err
	}
	checksums := make(map[int]string, len(applied))
	for _, am := range applied {
		checksums[am.Version] = am.Checksum
	}

	var ran []int
	for _, m := range migrations {
		if sum, ok := checksums[m.Version]; ok {
			if sum != m.Checksum {
				return ran, fmt.Errorf("migration %04d_%s was modified after it was applied", m.Version, m.Name)
			}
			continue
		}
		if err := runMigration(ctx, db, m, now); err != nil {
			return ran, fmt.Errorf("migration %04d_%s: %w", m.Version, m.Name, err)
		}
		ran = append(ran, m.Version)
	}
	return ran, nil
}

func runMigration(ctx context.Context, db *sqlx.DB, m Migration, now int64) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)",
		m.Version, m.Name, m.Checksum, now); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit()
}

// splitStatements splits a migration on statement-terminating semicolons.
// Migrations must not put semicolons inside string literals.
func splitStatements(sql string) []string {
	var out []string
	for _, stmt := range strings.Split(sql, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Migrations lists the schema migrations recorded in the open database.
func (s *TransactionStore) Migrations(ctx context.Context) ([]AppliedMigration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn("Migrations")
	if err != nil {
		return nil, err
	}
	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("Migrations: %w: %w", ErrIO, err)
	}
	return applied, nil
}
