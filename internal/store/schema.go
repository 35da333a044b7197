package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// selectColumns is shared by every read so rows always scan into transactionRow.
const selectColumns = `id, user, source, date, amount, currency, iban, other_party_iban,
	other_party, usage, category, created_at, updated_at`

// ensureSchema applies pending migrations and checks that the table carries
// the expected columns. Files written by older versions have the table but no
// schema_migrations; the IF NOT EXISTS statements make that upgrade a no-op.
func ensureSchema(ctx context.Context, db *sqlx.DB, now int64) error {
	migrations, err := readMigrations(migrationFiles)
	if err != nil {
		return fmt.Errorf("ensureSchema: %w", err)
	}
	if _, err := applyMigrations(ctx, db, migrations, now); err != nil {
		return fmt.Errorf("ensureSchema: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT "+selectColumns+" FROM transactions LIMIT 0")
	if err != nil {
		return fmt.Errorf("ensureSchema: verify columns: %w", err)
	}
	return rows.Close()
}
