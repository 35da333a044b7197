package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/dvloznov/transactiondb/cmd/cli/output"
	"github.com/dvloznov/transactiondb/internal/domain"
	infraBQ "github.com/dvloznov/transactiondb/internal/infra/bigquery"
)

var (
	// Export flags
	exportProject string
	exportDataset string
	exportTable   string
	exportPeriod  string
	exportDryRun  bool
)

// exportCmd streams transactions into BigQuery
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export transactions to BigQuery",
	Long: `Stream transactions into a BigQuery table, creating the table
(partitioned by transaction date) if it does not exist.

Examples:
  txdb export --project my-project
  txdb export --project my-project --dataset finance --table transactions --period month`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportProject, "project", cfg.BigQueryProject, "GCP project (or set BQ_PROJECT)")
	exportCmd.Flags().StringVar(&exportDataset, "dataset", cfg.BigQueryDataset, "BigQuery dataset (or set BQ_DATASET)")
	exportCmd.Flags().StringVar(&exportTable, "table", cfg.BigQueryTable, "BigQuery table (or set BQ_TABLE)")
	exportCmd.Flags().StringVar(&exportPeriod, "period", string(domain.PeriodAll), "Only export: today, week, month, year, all")
	exportCmd.Flags().BoolVar(&exportDryRun, "dry-run", false, "Count the rows that would be exported without sending them")
}

func runExport(ctx context.Context) error {
	if exportProject == "" && !exportDryRun {
		return fmt.Errorf("--project flag is required")
	}

	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.CloseDatabase()

	r := domain.DateRangeFor(domain.Period(exportPeriod), time.Now())
	ts, err := s.Search(ctx, domain.SearchFilter{StartDate: r.Start, EndDate: r.End})
	if err != nil {
		return err
	}

	if exportDryRun {
		output.Info("%d transactions would be exported to %s.%s", len(ts), exportDataset, exportTable)
		return nil
	}

	var opts []option.ClientOption
	if cfg.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
	}
	exporter, err := infraBQ.NewTransactionExporter(ctx, exportProject, exportDataset, exportTable, opts...)
	if err != nil {
		return err
	}
	defer exporter.Close()

	return exportTo(ctx, exporter, ts)
}

func exportTo(ctx context.Context, exporter infraBQ.Exporter, ts []*domain.Transaction) error {
	if err := exporter.EnsureTable(ctx); err != nil {
		return err
	}
	n, err := exporter.Export(ctx, ts)
	if err != nil {
		return fmt.Errorf("exported %d of %d transactions: %w", n, len(ts), err)
	}
	output.Success("Exported %d transactions to %s.%s.%s", n, exportProject, exportDataset, exportTable)
	return nil
}
