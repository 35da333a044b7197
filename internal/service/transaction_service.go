// Package service is the request-facing facade over the transaction store.
// No method returns an error: failures are logged and reported as false,
// nil, an empty slice or an empty page.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/transactiondb/internal/domain"
	"github.com/dvloznov/transactiondb/internal/gcs"
	"github.com/dvloznov/transactiondb/internal/store"
)

// TransactionService wraps a TransactionStore with the boundary contract.
type TransactionService struct {
	store   *store.TransactionStore
	storage gcs.StorageService
	log     zerolog.Logger
}

// Option configures a TransactionService.
type Option func(*TransactionService)

// WithLogger sets the logger used for failures and lifecycle events.
func WithLogger(log zerolog.Logger) Option {
	return func(s *TransactionService) { s.log = log }
}

// WithStorage enables backups to gs:// destinations.
func WithStorage(storage gcs.StorageService) Option {
	return func(s *TransactionService) { s.storage = storage }
}

// New returns a service over st.
func New(st *store.TransactionStore, opts ...Option) *TransactionService {
	s := &TransactionService{
		store: st,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TransactionService) fail(op string, err error) *zerolog.Event {
	return s.log.Error().Err(err).Str("op", op).Str("kind", store.KindOf(err))
}

// LoadDatabase opens an existing database file.
func (s *TransactionService) LoadDatabase(ctx context.Context, path string) bool {
	if err := s.store.LoadDatabase(ctx, path); err != nil {
		s.fail("LoadDatabase", err).Str("path", path).Msg("Failed to load database")
		return false
	}
	s.log.Info().Str("path", path).Msg("Database loaded")
	return true
}

// CreateDatabase opens path, creating the file if needed.
func (s *TransactionService) CreateDatabase(ctx context.Context, path string) bool {
	if err := s.store.CreateDatabase(ctx, path); err != nil {
		s.fail("CreateDatabase", err).Str("path", path).Msg("Failed to create database")
		return false
	}
	s.log.Info().Str("path", path).Msg("Database created")
	return true
}

// CloseDatabase always reports success; a close error is only logged.
func (s *TransactionService) CloseDatabase() bool {
	if err := s.store.CloseDatabase(); err != nil {
		s.fail("CloseDatabase", err).Msg("Error while closing database")
	}
	return true
}

func (s *TransactionService) IsLoaded() bool {
	return s.store.IsLoaded()
}

// GetCurrentPath returns nil while no database is loaded.
func (s *TransactionService) GetCurrentPath() *string {
	p, ok := s.store.CurrentPath()
	if !ok {
		return nil
	}
	return &p
}

func (s *TransactionService) invalid(op string, t *domain.Transaction) bool {
	if t == nil {
		s.log.Error().Str("op", op).Str("kind", "invalid_argument").Msg("Missing transaction")
		return true
	}
	if errs := domain.Validate(t); len(errs) > 0 {
		s.log.Error().Str("op", op).Str("kind", "invalid_argument").
			Str("transaction_id", t.ID).Strs("errors", errs).Msg("Invalid transaction")
		return true
	}
	return false
}

func (s *TransactionService) AddTransaction(ctx context.Context, t *domain.Transaction) bool {
	if s.invalid("AddTransaction", t) {
		return false
	}
	if err := s.store.Add(ctx, t); err != nil {
		s.fail("AddTransaction", err).Str("transaction_id", t.ID).Msg("Failed to add transaction")
		return false
	}
	return true
}

// AddTransactions inserts the batch atomically. One invalid element rejects
// the whole batch.
func (s *TransactionService) AddTransactions(ctx context.Context, ts []*domain.Transaction) bool {
	for _, t := range ts {
		if s.invalid("AddTransactions", t) {
			return false
		}
	}
	if err := s.store.AddMany(ctx, ts); err != nil {
		s.fail("AddTransactions", err).Int("count", len(ts)).Msg("Failed to add transactions")
		return false
	}
	return true
}

func (s *TransactionService) UpdateTransaction(ctx context.Context, t *domain.Transaction) bool {
	if s.invalid("UpdateTransaction", t) {
		return false
	}
	if err := s.store.Update(ctx, t); err != nil {
		s.fail("UpdateTransaction", err).Str("transaction_id", t.ID).Msg("Failed to update transaction")
		return false
	}
	return true
}

func (s *TransactionService) RemoveTransaction(ctx context.Context, id string) bool {
	if err := s.store.Remove(ctx, id); err != nil {
		s.fail("RemoveTransaction", err).Str("transaction_id", id).Msg("Failed to remove transaction")
		return false
	}
	return true
}

// GetTransactionByID returns nil when the id is unknown or the lookup fails.
func (s *TransactionService) GetTransactionByID(ctx context.Context, id string) *domain.Transaction {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		if store.KindOf(err) != "not_found" {
			s.fail("GetTransactionByID", err).Str("transaction_id", id).Msg("Failed to get transaction")
		}
		return nil
	}
	return t
}

func (s *TransactionService) list(op string, ts []*domain.Transaction, err error) []*domain.Transaction {
	if err != nil {
		s.fail(op, err).Msg("Failed to list transactions")
		return []*domain.Transaction{}
	}
	if ts == nil {
		return []*domain.Transaction{}
	}
	return ts
}

func (s *TransactionService) GetAllTransactions(ctx context.Context) []*domain.Transaction {
	ts, err := s.store.GetAll(ctx)
	return s.list("GetAllTransactions", ts, err)
}

func (s *TransactionService) GetTransactionsByDateRange(ctx context.Context, start, end time.Time) []*domain.Transaction {
	ts, err := s.store.GetByDateRange(ctx, start, end)
	return s.list("GetTransactionsByDateRange", ts, err)
}

func (s *TransactionService) GetTransactionsByUser(ctx context.Context, user string) []*domain.Transaction {
	ts, err := s.store.GetByUser(ctx, user)
	return s.list("GetTransactionsByUser", ts, err)
}

// GetTransactionsByCategory matches on name, and on subcategory when it is non-empty.
func (s *TransactionService) GetTransactionsByCategory(ctx context.Context, name, subcategory string) []*domain.Transaction {
	ts, err := s.store.GetByCategory(ctx, name, subcategory)
	return s.list("GetTransactionsByCategory", ts, err)
}

func (s *TransactionService) SearchTransactions(ctx context.Context, f domain.SearchFilter) []*domain.Transaction {
	ts, err := s.store.Search(ctx, f)
	return s.list("SearchTransactions", ts, err)
}

// GetTransactionCount returns 0 on failure.
func (s *TransactionService) GetTransactionCount(ctx context.Context) int {
	n, err := s.store.Count(ctx)
	if err != nil {
		s.fail("GetTransactionCount", err).Msg("Failed to count transactions")
		return 0
	}
	return n
}

// GetTransactionsPaginated returns an empty first page on failure.
func (s *TransactionService) GetTransactionsPaginated(ctx context.Context, page, limit int) *domain.Page {
	p, err := s.store.Paginated(ctx, page, limit)
	if err != nil {
		s.fail("GetTransactionsPaginated", err).Int("page", page).Int("limit", limit).Msg("Failed to paginate transactions")
		return &domain.Page{Items: []*domain.Transaction{}, Page: 1}
	}
	return p
}

// BackupDatabase copies the open database to dest. A gs://bucket/object
// destination is written to a local temp file first and then uploaded.
func (s *TransactionService) BackupDatabase(ctx context.Context, dest string) bool {
	if gcs.IsURI(dest) {
		if err := s.backupRemote(ctx, dest); err != nil {
			s.fail("BackupDatabase", err).Str("dest", dest).Msg("Failed to back up database")
			return false
		}
		return true
	}
	if err := s.store.Backup(ctx, dest); err != nil {
		s.fail("BackupDatabase", err).Str("dest", dest).Msg("Failed to back up database")
		return false
	}
	return true
}

func (s *TransactionService) backupRemote(ctx context.Context, uri string) error {
	if s.storage == nil {
		return fmt.Errorf("backupRemote: %w: no cloud storage configured", store.ErrInvalidArgument)
	}
	bucket, object, err := gcs.ParseURI(uri)
	if err != nil {
		return fmt.Errorf("backupRemote: %w: %w", store.ErrInvalidArgument, err)
	}

	dir, err := os.MkdirTemp("", "txdb-backup-")
	if err != nil {
		return fmt.Errorf("backupRemote: create temp dir: %w: %w", store.ErrIO, err)
	}
	defer os.RemoveAll(dir)

	local := filepath.Join(dir, strings.ReplaceAll(gcs.ObjectBase(uri), string(filepath.Separator), "_"))
	if err := s.store.Backup(ctx, local); err != nil {
		return err
	}
	if err := s.storage.UploadFile(ctx, bucket, object, local); err != nil {
		return fmt.Errorf("backupRemote: upload: %w: %w", store.ErrIO, err)
	}

	s.log.Info().Str("bucket", bucket).Str("object", object).Msg("Database backup uploaded")
	return nil
}

// RestoreDatabase downloads a gs://bucket/object backup to path and loads it.
// path must not exist yet; a download that is not a transaction database is
// removed again and the current database stays open.
func (s *TransactionService) RestoreDatabase(ctx context.Context, uri, path string) bool {
	if err := s.restoreRemote(ctx, uri, path); err != nil {
		s.fail("RestoreDatabase", err).Str("uri", uri).Str("path", path).Msg("Failed to restore database")
		return false
	}
	s.log.Info().Str("uri", uri).Str("path", path).Msg("Database restored")
	return true
}

func (s *TransactionService) restoreRemote(ctx context.Context, uri, path string) error {
	if s.storage == nil {
		return fmt.Errorf("restoreRemote: %w: no cloud storage configured", store.ErrInvalidArgument)
	}
	bucket, object, err := gcs.ParseURI(uri)
	if err != nil {
		return fmt.Errorf("restoreRemote: %w: %w", store.ErrInvalidArgument, err)
	}
	if path == "" {
		return fmt.Errorf("restoreRemote: %w: empty path", store.ErrInvalidArgument)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("restoreRemote: %w: %q already exists", store.ErrInvalidArgument, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("restoreRemote: create directory: %w: %w", store.ErrIO, err)
	}
	if err := s.storage.DownloadFile(ctx, bucket, object, path); err != nil {
		return fmt.Errorf("restoreRemote: download: %w: %w", store.ErrIO, err)
	}
	if err := s.store.LoadDatabase(ctx, path); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}
