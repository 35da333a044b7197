package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/transactiondb/cmd/cli/output"
	"github.com/dvloznov/transactiondb/internal/config"
	"github.com/dvloznov/transactiondb/internal/domain"
	"github.com/dvloznov/transactiondb/internal/logger"
	"github.com/dvloznov/transactiondb/internal/store"
)

var (
	// Global flags
	dbPath     string
	logLevel   string
	jsonOutput bool

	cfg = config.Load()
	log = zerolog.Nop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "txdb",
	Short: "TransactionDB - local SQLite store for financial transactions",
	Long: `txdb manages a single-file SQLite database of financial transactions.

The database is chosen with --db (or TXDB_PATH) and defaults to
./transactions.db. Every command except "create" requires the file to exist.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.NewWithConfig(os.Stderr, logLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		log = l
		return nil
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		output.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	defaultDB := cfg.DatabasePath
	if defaultDB == "" {
		defaultDB = store.DefaultPath()
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "Database file (or set TXDB_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// openStore loads the --db file, or creates it when create is set.
func openStore(ctx context.Context, create bool) (*store.TransactionStore, error) {
	s := store.New(store.WithLogger(log))
	var err error
	if create {
		err = s.CreateDatabase(ctx, dbPath)
	} else {
		err = s.LoadDatabase(ctx, dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dbPath, err)
	}
	return s, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTransactions(ts []*domain.Transaction) error {
	if jsonOutput {
		if ts == nil {
			ts = []*domain.Transaction{}
		}
		return printJSON(ts)
	}
	if len(ts) == 0 {
		output.Muted("No transactions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tAMOUNT\tUSER\tSOURCE\tCATEGORY\tUSAGE\tID")
	for _, t := range ts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Date.Format("2006-01-02"),
			output.Amount(t.Amount, t.Currency),
			t.User,
			t.Source,
			output.Category(t.Category),
			t.Usage,
			t.ID,
		)
	}
	return w.Flush()
}
