package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dvloznov/transactiondb/cmd/cli/output"
)

// createCmd creates (or opens) the database file
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the database file",
	Long: `Create the database file named by --db, including missing parent
directories. Running it against an existing database is harmless.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate(cmd.Context())
	},
}

// countCmd prints the number of stored transactions
var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of transactions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCount(cmd.Context())
	},
}

// migrationsCmd lists applied schema migrations
var migrationsCmd = &cobra.Command{
	Use:   "migrations",
	Short: "List applied schema migrations",
	Long: `List the schema migrations recorded in the database. Pending migrations
are applied automatically whenever a database is opened.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(migrationsCmd)
}

func runCreate(ctx context.Context) error {
	s, err := openStore(ctx, true)
	if err != nil {
		return err
	}
	defer s.CloseDatabase()

	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	output.Success("Database ready: %s (%d transactions)", dbPath, n)
	return nil
}

func runCount(ctx context.Context) error {
	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.CloseDatabase()

	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(map[string]int{"count": n})
	}
	output.Info("%d transactions in %s", n, dbPath)
	return nil
}

func runMigrations(ctx context.Context) error {
	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.CloseDatabase()

	applied, err := s.Migrations(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(applied)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED AT\tCHECKSUM")
	for _, m := range applied {
		fmt.Fprintf(w, "%04d\t%s\t%s\t%s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"), m.Checksum[:min(12, len(m.Checksum))])
	}
	return w.Flush()
}
