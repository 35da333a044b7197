package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/transactiondb/cmd/cli/output"
	"github.com/dvloznov/transactiondb/internal/domain"
)

var (
	// Add flags
	addUser           string
	addSource         string
	addDate           string
	addAmount         float64
	addCurrency       string
	addUsage          string
	addIBAN           string
	addOtherParty     string
	addOtherPartyIBAN string
	addCategory       string
	addSubcategory    string

	// List flags
	listPage  int
	listLimit int
)

// addCmd inserts one transaction
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a transaction",
	Long: `Add one transaction. Negative amounts are outflows.

Examples:
  txdb add --user alice --source bank --date 2025-06-01 --amount -50.25 \
    --currency EUR --usage "Weekly groceries" --category Food --subcategory Groceries`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAdd(cmd.Context())
	},
}

// showCmd prints one transaction
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a transaction by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShow(cmd.Context(), args[0])
	},
}

// removeCmd deletes one transaction
var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a transaction by id",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemove(cmd.Context(), args[0])
	},
}

// listCmd prints one page of transactions, newest first
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(listCmd)

	addCmd.Flags().StringVar(&addUser, "user", "", "Owner of the transaction (required)")
	addCmd.Flags().StringVar(&addSource, "source", "", "Source, e.g. bank or credit card (required)")
	addCmd.Flags().StringVar(&addDate, "date", "", "Date as YYYY-MM-DD, RFC 3339 or epoch seconds (required)")
	addCmd.Flags().Float64Var(&addAmount, "amount", 0, "Signed amount")
	addCmd.Flags().StringVar(&addCurrency, "currency", "EUR", "ISO 4217 currency code")
	addCmd.Flags().StringVar(&addUsage, "usage", "", "Description (required)")
	addCmd.Flags().StringVar(&addIBAN, "iban", "", "Account IBAN")
	addCmd.Flags().StringVar(&addOtherParty, "other-party", "", "Counterparty name")
	addCmd.Flags().StringVar(&addOtherPartyIBAN, "other-party-iban", "", "Counterparty IBAN")
	addCmd.Flags().StringVar(&addCategory, "category", "", "Category name")
	addCmd.Flags().StringVar(&addSubcategory, "subcategory", "", "Subcategory name")
	_ = addCmd.MarkFlagRequired("user")
	_ = addCmd.MarkFlagRequired("source")
	_ = addCmd.MarkFlagRequired("date")
	_ = addCmd.MarkFlagRequired("usage")

	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number (1-based)")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Transactions per page")
}

func buildTransaction() (*domain.Transaction, error) {
	date, err := domain.ParseDate(addDate)
	if err != nil {
		return nil, fmt.Errorf("invalid --date: %w", err)
	}

	opts := []domain.Option{
		domain.WithIBAN(addIBAN),
		domain.WithOtherParty(addOtherParty),
		domain.WithOtherPartyIBAN(addOtherPartyIBAN),
	}
	if addCategory != "" {
		opts = append(opts, domain.WithCategory(domain.NewCategory(addCategory, addSubcategory)))
	} else if addSubcategory != "" {
		return nil, fmt.Errorf("--subcategory requires --category")
	}

	t := domain.NewTransaction(addUser, addSource, date, addAmount, addCurrency, addUsage, opts...)
	if errs := domain.Validate(t); len(errs) > 0 {
		return nil, fmt.Errorf("invalid transaction: %v", errs)
	}
	return t, nil
}

func runAdd(ctx context.Context) error {
	t, err := buildTransaction()
	if err != nil {
		return err
	}

	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.CloseDatabase()

	if err := s.Add(ctx, t); err != nil {
		return fmt.Errorf("failed to add transaction: %w", err)
	}

	if jsonOutput {
		return printJSON(t)
	}
	output.Success("Added %s (%s)", t.ID, output.Amount(t.Amount, t.Currency))
	return nil
}

func runShow(ctx context.Context, id string) error {
	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.CloseDatabase()

	t, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(t)
	}

	output.Section("Transaction " + t.ID)
	fmt.Printf("  Date:        %s\n", t.Date.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Amount:      %s\n", output.Amount(t.Amount, t.Currency))
	fmt.Printf("  User:        %s\n", t.User)
	fmt.Printf("  Source:      %s\n", t.Source)
	fmt.Printf("  Usage:       %s\n", t.Usage)
	fmt.Printf("  Category:    %s\n", output.Category(t.Category))
	if t.OtherParty != "" {
		fmt.Printf("  Other party: %s\n", t.OtherParty)
	}
	if t.IBAN != "" {
		fmt.Printf("  IBAN:        %s\n", t.IBAN)
	}
	if t.OtherPartyIBAN != "" {
		fmt.Printf("  Other IBAN:  %s\n", t.OtherPartyIBAN)
	}
	output.Muted("  created %s, updated %s", t.CreatedAt.Format("2006-01-02 15:04:05"), t.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runRemove(ctx context.Context, id string) error {
	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.CloseDatabase()

	if err := s.Remove(ctx, id); err != nil {
		return err
	}
	output.Success("Removed %s", id)
	return nil
}

func runList(ctx context.Context) error {
	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.CloseDatabase()

	page, err := s.Paginated(ctx, listPage, listLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(page)
	}

	if err := printTransactions(page.Items); err != nil {
		return err
	}
	output.Muted("page %d of %d, %d transactions", page.Page, page.TotalPages, page.Total)
	return nil
}
