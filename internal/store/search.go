package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/transactiondb/internal/domain"
)

// orderBy is the listing contract: most recent first, ties by id.
const orderBy = " ORDER BY date DESC, id ASC"

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conditions []string
	args       []any
}

func (w *whereBuilder) add(cond string, args ...any) {
	w.conditions = append(w.conditions, cond)
	w.args = append(w.args, args...)
}

// build returns the WHERE clause (empty when there are no conditions).
func (w *whereBuilder) build() (string, []any) {
	if len(w.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(w.conditions, " AND "), w.args
}

func filterConditions(f domain.SearchFilter) *whereBuilder {
	w := &whereBuilder{}

	if f.User != "" {
		w.add("user = ?", f.User)
	}
	if f.CategoryName != "" {
		w.add("json_extract(category, '$.name') = ?", f.CategoryName)
	}
	if f.Subcategory != "" {
		w.add("json_extract(category, '$.subcategory') = ?", f.Subcategory)
	}
	if f.Source != "" {
		w.add("source = ?", f.Source)
	}
	if f.StartDate != nil {
		w.add("date >= ?", domain.DateToUnixSeconds(*f.StartDate))
	}
	if f.EndDate != nil {
		w.add("date <= ?", domain.DateToUnixSeconds(*f.EndDate))
	}
	if f.MinAmount != nil {
		w.add("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		w.add("amount <= ?", *f.MaxAmount)
	}
	if f.SearchText != "" {
		pattern := "%" + escapeLike(f.SearchText) + "%"
		w.add(`(usage LIKE ? ESCAPE '\' OR other_party LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	return w
}

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Search returns transactions matching every set field of f, most recent first.
func (s *TransactionStore) Search(ctx context.Context, f domain.SearchFilter) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn("Search")
	if err != nil {
		return nil, err
	}

	where, args := filterConditions(f).build()
	query := "SELECT " + selectColumns + " FROM transactions" + where + orderBy

	var rows []transactionRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("Search: %w: %w", ErrIO, err)
	}
	ts, err := rowsToDomain(rows)
	if err != nil {
		return nil, fmt.Errorf("Search: %w: %w", ErrIO, err)
	}
	return ts, nil
}

// GetByDateRange returns transactions with start <= date <= end, compared at
// second granularity.
func (s *TransactionStore) GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Transaction, error) {
	return s.Search(ctx, domain.SearchFilter{StartDate: &start, EndDate: &end})
}

// GetByUser returns the transactions of user.
func (s *TransactionStore) GetByUser(ctx context.Context, user string) ([]*domain.Transaction, error) {
	if user == "" {
		return nil, fmt.Errorf("GetByUser: %w: empty user", ErrInvalidArgument)
	}
	return s.Search(ctx, domain.SearchFilter{User: user})
}

// GetByCategory returns transactions whose category name equals name and,
// when subcategory is non-empty, whose subcategory equals it too.
func (s *TransactionStore) GetByCategory(ctx context.Context, name, subcategory string) ([]*domain.Transaction, error) {
	if name == "" {
		return nil, fmt.Errorf("GetByCategory: %w: empty category name", ErrInvalidArgument)
	}
	return s.Search(ctx, domain.SearchFilter{CategoryName: name, Subcategory: subcategory})
}

// Paginated returns page (1-indexed) of the date-descending listing. Pages past
// the end are empty but still report the totals.
func (s *TransactionStore) Paginated(ctx context.Context, page, limit int) (*domain.Page, error) {
	if page < 1 || limit < 1 {
		return nil, fmt.Errorf("Paginated: %w: page=%d limit=%d", ErrInvalidArgument, page, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn("Paginated")
	if err != nil {
		return nil, err
	}

	// Count and slice under one transaction so the totals match the items.
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Paginated: begin: %w: %w", ErrIO, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var total int
	if err := tx.GetContext(ctx, &total, "SELECT COUNT(*) FROM transactions"); err != nil {
		return nil, fmt.Errorf("Paginated: count: %w: %w", ErrIO, err)
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	result := &domain.Page{
		Items:      []*domain.Transaction{},
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}
	// Past the last page the offset (page-1)*limit could overflow.
	if page > totalPages {
		return result, nil
	}

	var rows []transactionRow
	query := "SELECT " + selectColumns + " FROM transactions" + orderBy + " LIMIT ? OFFSET ?"
	if err := tx.SelectContext(ctx, &rows, query, limit, (page-1)*limit); err != nil {
		return nil, fmt.Errorf("Paginated: select: %w: %w", ErrIO, err)
	}

	result.Items, err = rowsToDomain(rows)
	if err != nil {
		return nil, fmt.Errorf("Paginated: %w: %w", ErrIO, err)
	}
	return result, nil
}
