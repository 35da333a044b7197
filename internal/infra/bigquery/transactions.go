package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/transactiondb/internal/domain"
)

// TransactionRow is one exported transaction.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	UserID string `bigquery:"user_id"` // REQUIRED
	Source string `bigquery:"source"`  // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED, partition column
	TransactionTS   time.Time  `bigquery:"transaction_ts"`   // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	IBAN           bigquery.NullString `bigquery:"iban"`             // NULLABLE
	OtherPartyIBAN bigquery.NullString `bigquery:"other_party_iban"` // NULLABLE
	OtherParty     bigquery.NullString `bigquery:"other_party"`      // NULLABLE

	Usage string `bigquery:"usage"` // REQUIRED STRING

	CategoryName    bigquery.NullString `bigquery:"category_name"`    // NULLABLE
	SubcategoryName bigquery.NullString `bigquery:"subcategory_name"` // NULLABLE

	CreatedTS  bigquery.NullTimestamp `bigquery:"created_ts"`  // NULLABLE
	UpdatedTS  bigquery.NullTimestamp `bigquery:"updated_ts"`  // NULLABLE
	ExportedTS time.Time              `bigquery:"exported_ts"` // REQUIRED
}

// NewTransactionRow maps a stored transaction onto its export row. Amounts
// go through decimal so NUMERIC gets the shortest exact representation of
// the float rather than its binary expansion.
func NewTransactionRow(t *domain.Transaction, exportedAt time.Time) *TransactionRow {
	date := t.Date.UTC()
	row := &TransactionRow{
		TransactionID:   t.ID,
		UserID:          t.User,
		Source:          t.Source,
		TransactionDate: civil.DateOf(date),
		TransactionTS:   date,
		Amount:          decimal.NewFromFloat(t.Amount).Rat(),
		Currency:        t.Currency,
		IBAN:            nullString(t.IBAN),
		OtherPartyIBAN:  nullString(t.OtherPartyIBAN),
		OtherParty:      nullString(t.OtherParty),
		Usage:           t.Usage,
		CreatedTS:       nullTimestamp(t.CreatedAt),
		UpdatedTS:       nullTimestamp(t.UpdatedAt),
		ExportedTS:      exportedAt.UTC(),
	}
	if t.Category != nil {
		row.CategoryName = nullString(t.Category.Name)
		row.SubcategoryName = nullString(t.Category.Subcategory)
	}
	return row
}

// TransactionSchema is the table schema inferred from TransactionRow, with
// REQUIRED set on the non-null columns.
func TransactionSchema() (bigquery.Schema, error) {
	schema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return nil, err
	}
	for _, f := range schema {
		switch f.Name {
		case "transaction_id", "user_id", "source", "transaction_date", "transaction_ts",
			"amount", "currency", "usage", "exported_ts":
			f.Required = true
		}
	}
	return schema, nil
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func nullTimestamp(t time.Time) bigquery.NullTimestamp {
	return bigquery.NullTimestamp{Timestamp: t.UTC(), Valid: !t.IsZero()}
}
