package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dvloznov/transactiondb/internal/domain"
)

// insertBatchSize keeps each streaming insert request well under the API's
// per-request row limit.
const insertBatchSize = 500

// TransactionExporter is the BigQuery implementation of Exporter. It holds
// one client for its lifetime.
type TransactionExporter struct {
	client  *bigquery.Client
	dataset string
	table   string
	now     func() time.Time
}

// NewTransactionExporter creates a BigQuery client for projectID.
func NewTransactionExporter(ctx context.Context, projectID, dataset, table string, opts ...option.ClientOption) (*TransactionExporter, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewTransactionExporter: project id is required")
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewTransactionExporter: creating client: %w", err)
	}
	return &TransactionExporter{
		client:  client,
		dataset: dataset,
		table:   table,
		now:     time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (e *TransactionExporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func (e *TransactionExporter) tableRef() *bigquery.Table {
	return e.client.Dataset(e.dataset).Table(e.table)
}

// EnsureTable creates the table, partitioned by transaction_date, when it is missing.
func (e *TransactionExporter) EnsureTable(ctx context.Context) error {
	table := e.tableRef()
	if _, err := table.Metadata(ctx); err == nil {
		return nil
	} else if !isNotFound(err) {
		return fmt.Errorf("EnsureTable: reading metadata: %w", err)
	}

	schema, err := TransactionSchema()
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "transaction_date",
		},
		Clustering: &bigquery.Clustering{Fields: []string{"user_id"}},
	}
	if err := table.Create(ctx, meta); err != nil {
		return fmt.Errorf("EnsureTable: creating table: %w", err)
	}
	return nil
}

// Export streams ts into the table in batches.
func (e *TransactionExporter) Export(ctx context.Context, ts []*domain.Transaction) (int, error) {
	return exportRows(ctx, e.tableRef().Inserter(), ts, e.now())
}

func exportRows(ctx context.Context, ins rowInserter, ts []*domain.Transaction, exportedAt time.Time) (int, error) {
	sent := 0
	for start := 0; start < len(ts); start += insertBatchSize {
		end := min(start+insertBatchSize, len(ts))

		rows := make([]*TransactionRow, 0, end-start)
		for _, t := range ts[start:end] {
			rows = append(rows, NewTransactionRow(t, exportedAt))
		}
		if err := ins.Put(ctx, rows); err != nil {
			return sent, fmt.Errorf("Export: inserting rows %d-%d: %w", start, end-1, err)
		}
		sent += len(rows)
	}
	return sent, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
