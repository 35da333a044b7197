package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dvloznov/transactiondb/internal/domain"
)

// transactionRow is the on-disk shape of a transaction. Dates are whole
// seconds since the epoch; category is a JSON document.
type transactionRow struct {
	ID             string         `db:"id"`
	User           string         `db:"user"`
	Source         string         `db:"source"`
	Date           int64          `db:"date"`
	Amount         float64        `db:"amount"`
	Currency       string         `db:"currency"`
	IBAN           sql.NullString `db:"iban"`
	OtherPartyIBAN sql.NullString `db:"other_party_iban"`
	OtherParty     sql.NullString `db:"other_party"`
	Usage          string         `db:"usage"`
	Category       sql.NullString `db:"category"`
	CreatedAt      sql.NullInt64  `db:"created_at"`
	UpdatedAt      sql.NullInt64  `db:"updated_at"`
}

func toRow(t *domain.Transaction) (*transactionRow, error) {
	row := &transactionRow{
		ID:             t.ID,
		User:           t.User,
		Source:         t.Source,
		Date:           domain.DateToUnixSeconds(t.Date),
		Amount:         t.Amount,
		Currency:       t.Currency,
		IBAN:           nullString(t.IBAN),
		OtherPartyIBAN: nullString(t.OtherPartyIBAN),
		OtherParty:     nullString(t.OtherParty),
		Usage:          t.Usage,
	}
	if t.Category != nil {
		b, err := json.Marshal(t.Category)
		if err != nil {
			return nil, fmt.Errorf("toRow: marshal category: %w", err)
		}
		row.Category = sql.NullString{String: string(b), Valid: true}
	}
	return row, nil
}

func (r *transactionRow) toDomain() (*domain.Transaction, error) {
	t := &domain.Transaction{
		ID:             r.ID,
		User:           r.User,
		Source:         r.Source,
		Date:           domain.UnixSecondsToDate(r.Date),
		Amount:         r.Amount,
		Currency:       r.Currency,
		IBAN:           r.IBAN.String,
		OtherPartyIBAN: r.OtherPartyIBAN.String,
		OtherParty:     r.OtherParty.String,
		Usage:          r.Usage,
	}
	if r.Category.Valid && r.Category.String != "" {
		var c domain.Category
		if err := json.Unmarshal([]byte(r.Category.String), &c); err != nil {
			return nil, fmt.Errorf("toDomain: category of %s: %w", r.ID, err)
		}
		t.Category = &c
	}
	if r.CreatedAt.Valid {
		t.CreatedAt = domain.UnixSecondsToDate(r.CreatedAt.Int64)
	}
	if r.UpdatedAt.Valid {
		t.UpdatedAt = domain.UnixSecondsToDate(r.UpdatedAt.Int64)
	}
	return t, nil
}

func rowsToDomain(rows []transactionRow) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
