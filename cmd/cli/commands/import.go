package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/transactiondb/cmd/cli/output"
	"github.com/dvloznov/transactiondb/internal/domain"
)

// importCmd bulk-inserts transactions from a JSON file
var importCmd = &cobra.Command{
	Use:   "import <file.json|->",
	Short: "Import transactions from a JSON array",
	Long: `Import a JSON array of transactions in one atomic batch: either every
transaction is stored or none is. Missing ids are generated. Dates may be
RFC 3339 text, YYYY-MM-DD, or epoch seconds/milliseconds.

Examples:
  txdb import june.json
  cat june.json | txdb import -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// readTransactions decodes and validates an import document. Problems are
// reported per element.
func readTransactions(r io.Reader) ([]*domain.Transaction, error) {
	var ts []*domain.Transaction
	if err := json.NewDecoder(r).Decode(&ts); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	var problems []string
	for i, t := range ts {
		if t == nil {
			problems = append(problems, fmt.Sprintf("#%d: null entry", i))
			continue
		}
		if t.ID == "" {
			t.ID = domain.GenerateTransactionID()
		}
		for _, msg := range domain.Validate(t) {
			problems = append(problems, fmt.Sprintf("#%d: %s", i, msg))
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid transactions:\n  %s", strings.Join(problems, "\n  "))
	}
	return ts, nil
}

func runImport(ctx context.Context, file string) error {
	var r io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer f.Close()
		r = f
	}

	ts, err := readTransactions(r)
	if err != nil {
		return err
	}
	if len(ts) == 0 {
		output.Warning("No transactions in %s", file)
		return nil
	}

	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.CloseDatabase()

	if err := s.AddMany(ctx, ts); err != nil {
		return fmt.Errorf("import failed, nothing was stored: %w", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	output.Success("Imported %d transactions (%d total)", len(ts), n)
	return nil
}
