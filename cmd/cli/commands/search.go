package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dvloznov/transactiondb/cmd/cli/output"
	"github.com/dvloznov/transactiondb/internal/domain"
)

var (
	// Search flags
	searchUser        string
	searchCategory    string
	searchSubcategory string
	searchSource      string
	searchFrom        string
	searchTo          string
	searchPeriod      string
	searchMin         float64
	searchMax         float64
	searchText        string
)

// searchCmd filters transactions
var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search transactions",
	Long: `Search transactions. Every given filter must match; text matches the
usage or other party, case-insensitively.

Examples:
  txdb search coffee
  txdb search --user alice --category Food --period month
  txdb search --from 2025-06-01 --to 2025-06-30 --max 0`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			searchText = args[0]
		}
		f, err := buildFilter(cmd, time.Now())
		if err != nil {
			return err
		}
		return runSearch(cmd.Context(), f)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchUser, "user", "", "Exact user")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "Exact category name")
	searchCmd.Flags().StringVar(&searchSubcategory, "subcategory", "", "Exact subcategory name")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "Exact source")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "Earliest date (inclusive)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "Latest date (inclusive)")
	searchCmd.Flags().StringVar(&searchPeriod, "period", "", "Date range shortcut: today, week, month, year, all")
	searchCmd.Flags().Float64Var(&searchMin, "min", 0, "Minimum amount")
	searchCmd.Flags().Float64Var(&searchMax, "max", 0, "Maximum amount")
	searchCmd.MarkFlagsMutuallyExclusive("period", "from")
	searchCmd.MarkFlagsMutuallyExclusive("period", "to")
}

// buildFilter turns the search flags into a filter. Amount bounds only apply
// when their flag was set, so --max 0 means "outflows only".
func buildFilter(cmd *cobra.Command, now time.Time) (domain.SearchFilter, error) {
	f := domain.SearchFilter{
		User:         searchUser,
		CategoryName: searchCategory,
		Subcategory:  searchSubcategory,
		Source:       searchSource,
		SearchText:   searchText,
	}

	if searchPeriod != "" {
		switch p := domain.Period(searchPeriod); p {
		case domain.PeriodToday, domain.PeriodWeek, domain.PeriodMonth, domain.PeriodYear, domain.PeriodAll:
			r := domain.DateRangeFor(p, now)
			f.StartDate, f.EndDate = r.Start, r.End
		default:
			return f, fmt.Errorf("invalid --period %q", searchPeriod)
		}
	}
	if searchFrom != "" {
		d, err := domain.ParseDate(searchFrom)
		if err != nil {
			return f, fmt.Errorf("invalid --from: %w", err)
		}
		f.StartDate = &d
	}
	if searchTo != "" {
		d, err := domain.ParseDate(searchTo)
		if err != nil {
			return f, fmt.Errorf("invalid --to: %w", err)
		}
		// A bare date means the whole day.
		if len(searchTo) == len("2006-01-02") {
			d = d.Add(24*time.Hour - time.Second)
		}
		f.EndDate = &d
	}
	if cmd.Flags().Changed("min") {
		v := searchMin
		f.MinAmount = &v
	}
	if cmd.Flags().Changed("max") {
		v := searchMax
		f.MaxAmount = &v
	}
	return f, nil
}

func runSearch(ctx context.Context, f domain.SearchFilter) error {
	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.CloseDatabase()

	ts, err := s.Search(ctx, f)
	if err != nil {
		return err
	}
	if err := printTransactions(ts); err != nil {
		return err
	}
	if !jsonOutput && len(ts) > 0 {
		output.Muted("%d matching transactions", len(ts))
	}
	return nil
}
