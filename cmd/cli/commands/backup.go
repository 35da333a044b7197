package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/transactiondb/cmd/cli/output"
	"github.com/dvloznov/transactiondb/internal/gcs"
	"github.com/dvloznov/transactiondb/internal/service"
)

// backupCmd copies the database to a file or Cloud Storage object
var backupCmd = &cobra.Command{
	Use:   "backup <dest>",
	Short: "Back up the database",
	Long: `Write a consistent copy of the database to a local path or to a Cloud
Storage object. Cloud Storage uses GOOGLE_APPLICATION_CREDENTIALS when set and
Application Default Credentials otherwise.

Examples:
  txdb backup ./backups/transactions-2025-06.db
  txdb backup gs://my-bucket/backups/transactions.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackup(cmd.Context(), args[0])
	},
}

// newStorage builds the Cloud Storage client for gs:// backups and restores.
var newStorage = func() gcs.StorageService {
	return gcs.NewClient(cfg.GCSCredentialsFile)
}

func init() {
	rootCmd.AddCommand(backupCmd)
}

func runBackup(ctx context.Context, dest string) error {
	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.CloseDatabase()

	svc := service.New(s,
		service.WithLogger(log),
		service.WithStorage(newStorage()),
	)
	if !svc.BackupDatabase(ctx, dest) {
		return fmt.Errorf("backup to %s failed", dest)
	}
	output.Success("Backed up %s to %s", dbPath, dest)
	return nil
}
