package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/transactiondb/internal/domain"
)

const insertSQL = `
	INSERT INTO transactions (
		id, user, source, date, amount, currency, iban,
		other_party_iban, other_party, usage, category, created_at, updated_at
	) VALUES (
		:id, :user, :source, :date, :amount, :currency, :iban,
		:other_party_iban, :other_party, :usage, :category, :created_at, :updated_at
	)`

const updateSQL = `
	UPDATE transactions SET
		user = :user,
		source = :source,
		date = :date,
		amount = :amount,
		currency = :currency,
		iban = :iban,
		other_party_iban = :other_party_iban,
		other_party = :other_party,
		usage = :usage,
		category = :category,
		updated_at = :updated_at
	WHERE id = :id`

// Add inserts one transaction. A duplicate id fails with ErrConstraint.
func (s *TransactionStore) Add(ctx context.Context, t *domain.Transaction) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn("Add")
	if err != nil {
		return err
	}
	row, err := s.insertRow(t)
	if err != nil {
		return fmt.Errorf("Add: %w: %w", ErrInvalidArgument, err)
	}
	if _, err := db.NamedExecContext(ctx, insertSQL, row); err != nil {
		return fmt.Errorf("Add: insert %s: %w: %w", t.ID, classify(err), err)
	}
	return nil
}

// AddMany inserts all transactions in one database transaction. If any row
// fails, none are persisted.
func (s *TransactionStore) AddMany(ctx context.Context, ts []*domain.Transaction) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn("AddMany")
	if err != nil {
		return err
	}

	rows := make([]*transactionRow, 0, len(ts))
	for _, t := range ts {
		row, err := s.insertRow(t)
		if err != nil {
			return fmt.Errorf("AddMany: %w: %w", ErrInvalidArgument, err)
		}
		rows = append(rows, row)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("AddMany: begin: %w: %w", ErrIO, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareNamedContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("AddMany: prepare: %w: %w", ErrIO, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("AddMany: insert %s: %w: %w", row.ID, classify(err), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("AddMany: commit: %w: %w", classify(err), err)
	}
	return nil
}

// Update overwrites every caller-owned field of the row with t.ID and bumps
// updated_at. A missing row fails with ErrNotFound.
func (s *TransactionStore) Update(ctx context.Context, t *domain.Transaction) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn("Update")
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("Update: %w: nil transaction", ErrInvalidArgument)
	}
	row, err := toRow(t)
	if err != nil {
		return fmt.Errorf("Update: %w: %w", ErrInvalidArgument, err)
	}
	row.UpdatedAt = sql.NullInt64{Int64: s.now().Unix(), Valid: true}

	res, err := db.NamedExecContext(ctx, updateSQL, row)
	if err != nil {
		return fmt.Errorf("Update: %s: %w: %w", t.ID, classify(err), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w: %w", ErrIO, err)
	}
	if n == 0 {
		return fmt.Errorf("Update: %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

// Remove deletes the row with id. A missing row fails with ErrNotFound.
func (s *TransactionStore) Remove(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn("Remove")
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("Remove: %s: %w: %w", id, classify(err), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Remove: rows affected: %w: %w", ErrIO, err)
	}
	if n == 0 {
		return fmt.Errorf("Remove: %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetByID returns the transaction with id, or ErrNotFound.
func (s *TransactionStore) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn("GetByID")
	if err != nil {
		return nil, err
	}

	var row transactionRow
	err = db.GetContext(ctx, &row, "SELECT "+selectColumns+" FROM transactions WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetByID: %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetByID: %s: %w: %w", id, ErrIO, err)
	}

	t, err := row.toDomain()
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w: %w", ErrIO, err)
	}
	return t, nil
}

// GetAll returns every transaction, most recent first.
func (s *TransactionStore) GetAll(ctx context.Context) ([]*domain.Transaction, error) {
	return s.Search(ctx, domain.SearchFilter{})
}

// Count returns the number of stored transactions.
func (s *TransactionStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn("Count")
	if err != nil {
		return 0, err
	}

	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM transactions"); err != nil {
		return 0, fmt.Errorf("Count: %w: %w", ErrIO, err)
	}
	return n, nil
}

// insertRow converts t and stamps both timestamps with the store clock.
func (s *TransactionStore) insertRow(t *domain.Transaction) (*transactionRow, error) {
	if t == nil {
		return nil, errors.New("nil transaction")
	}
	row, err := toRow(t)
	if err != nil {
		return nil, err
	}
	now := sql.NullInt64{Int64: s.now().Unix(), Valid: true}
	row.CreatedAt = now
	row.UpdatedAt = now
	return row, nil
}
