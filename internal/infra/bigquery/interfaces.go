package bigquery

import (
	"context"

	"github.com/dvloznov/transactiondb/internal/domain"
)

// Exporter copies transactions into an analytics table.
// This interface enables mocking and testing of the export.
type Exporter interface {
	// EnsureTable creates the destination table if it does not exist.
	EnsureTable(ctx context.Context) error

	// Export streams ts into the table and returns the number of rows sent.
	Export(ctx context.Context, ts []*domain.Transaction) (int, error)

	Close() error
}

// rowInserter is the part of *bigquery.Inserter the export uses.
type rowInserter interface {
	Put(ctx context.Context, src interface{}) error
}
