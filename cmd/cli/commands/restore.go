package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/transactiondb/cmd/cli/output"
	"github.com/dvloznov/transactiondb/internal/service"
	"github.com/dvloznov/transactiondb/internal/store"
)

// restoreCmd downloads a Cloud Storage backup into a new database file
var restoreCmd = &cobra.Command{
	Use:   "restore <gs://bucket/object>",
	Short: "Restore a backup from Cloud Storage",
	Long: `Download a backup written by "txdb backup gs://..." to the --db path and
check that it opens as a transaction database. The --db file must not exist
yet; a download that is not a transaction database is removed.

Examples:
  txdb restore gs://my-bucket/backups/transactions.db --db ./restored.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRestore(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(ctx context.Context, uri string) error {
	svc := service.New(store.New(store.WithLogger(log)),
		service.WithLogger(log),
		service.WithStorage(newStorage()),
	)
	defer svc.CloseDatabase()

	if !svc.RestoreDatabase(ctx, uri, dbPath) {
		return fmt.Errorf("restore of %s to %s failed", uri, dbPath)
	}
	output.Success("Restored %s to %s (%d transactions)", uri, dbPath, svc.GetTransactionCount(ctx))
	return nil
}
