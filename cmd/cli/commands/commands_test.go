package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/transactiondb/internal/domain"
	"github.com/dvloznov/transactiondb/internal/gcs"
	"github.com/dvloznov/transactiondb/internal/store"
)

func resetSearchFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		for _, name := range []string{"user", "category", "subcategory", "source", "from", "to", "period", "min", "max"} {
			f := searchCmd.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		searchText = ""
	})
}

func TestBuildFilter(t *testing.T) {
	resetSearchFlags(t)
	fs := searchCmd.Flags()
	require.NoError(t, fs.Set("user", "alice"))
	require.NoError(t, fs.Set("category", "Food"))
	require.NoError(t, fs.Set("from", "2025-06-01"))
	require.NoError(t, fs.Set("to", "2025-06-30"))
	require.NoError(t, fs.Set("max", "0"))
	searchText = "coffee"

	f, err := buildFilter(searchCmd, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "alice", f.User)
	assert.Equal(t, "Food", f.CategoryName)
	assert.Equal(t, "coffee", f.SearchText)
	require.NotNil(t, f.StartDate)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *f.StartDate)
	require.NotNil(t, f.EndDate)
	assert.Equal(t, time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC), *f.EndDate)
	assert.Nil(t, f.MinAmount, "unset bound stays open")
	require.NotNil(t, f.MaxAmount)
	assert.Equal(t, 0.0, *f.MaxAmount)
}

func TestBuildFilter_Period(t *testing.T) {
	resetSearchFlags(t)
	require.NoError(t, searchCmd.Flags().Set("period", "month"))

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f, err := buildFilter(searchCmd, now)
	require.NoError(t, err)
	require.NotNil(t, f.StartDate)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *f.StartDate)

	require.NoError(t, searchCmd.Flags().Set("period", "fortnight"))
	_, err = buildFilter(searchCmd, now)
	assert.Error(t, err)
}

func TestReadTransactions(t *testing.T) {
	ts, err := readTransactions(strings.NewReader(`[
		{"id":"tx-1","user":"alice","source":"bank","date":"2025-06-01","amount":-50.25,"currency":"EUR","usage":"Groceries"},
		{"user":"bob","source":"bank","date":1748736000,"amount":10,"currency":"EUR","usage":"Refund"}
	]`))
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, "tx-1", ts[0].ID)
	assert.NotEmpty(t, ts[1].ID, "missing ids are generated")
	assert.Equal(t, ts[0].Date, ts[1].Date)

	_, err = readTransactions(strings.NewReader(`[{"user":"bob","source":"bank","date":"2025-06-01","currency":"EURO","usage":"x"}, null]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#0: Currency must be a 3-letter code")
	assert.Contains(t, err.Error(), "#1: null entry")

	_, err = readTransactions(strings.NewReader(`{"not":"an array"}`))
	assert.Error(t, err)
}

type fakeExporter struct {
	ensured  bool
	exported []*domain.Transaction
	err      error
}

func (f *fakeExporter) EnsureTable(context.Context) error {
	f.ensured = true
	return nil
}

func (f *fakeExporter) Export(_ context.Context, ts []*domain.Transaction) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.exported = ts
	return len(ts), nil
}

func (f *fakeExporter) Close() error { return nil }

func TestExportTo(t *testing.T) {
	ts := []*domain.Transaction{domain.NewTransaction("alice", "bank", time.Now(), 1, "EUR", "x")}

	fe := &fakeExporter{}
	require.NoError(t, exportTo(context.Background(), fe, ts))
	assert.True(t, fe.ensured)
	assert.Len(t, fe.exported, 1)

	err := exportTo(context.Background(), &fakeExporter{err: errors.New("quota")}, ts)
	assert.ErrorContains(t, err, "exported 0 of 1")
}

func TestCommands_CreateImportBackup(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "nested", "tx.db")
	file := filepath.Join(dir, "june.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
		{"user":"alice","source":"bank","date":"2025-06-01","amount":-50.25,"currency":"EUR","usage":"Groceries"},
		{"user":"alice","source":"bank","date":"2025-06-05","amount":-4.5,"currency":"EUR","usage":"Coffee"}
	]`), 0o644))

	run := func(args ...string) error {
		rootCmd.SetArgs(append(args, "--db", db))
		return rootCmd.ExecuteContext(context.Background())
	}

	assert.Error(t, run("count"), "count needs an existing database")
	require.NoError(t, run("create"))
	require.NoError(t, run("import", file))
	require.NoError(t, run("list"))

	backup := filepath.Join(dir, "backup.db")
	require.NoError(t, run("backup", backup))
	assert.EqualError(t, run("backup", db), "backup to "+db+" failed", "the open database is not a backup target")

	s := store.New()
	require.NoError(t, s.LoadDatabase(context.Background(), backup))
	defer s.CloseDatabase()
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// memStorage keeps uploaded objects in memory, keyed by bucket/object.
type memStorage struct{ objects map[string][]byte }

func (m *memStorage) UploadFile(_ context.Context, bucket, object, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	m.objects[bucket+"/"+object] = data
	return nil
}

func (m *memStorage) DownloadFile(_ context.Context, bucket, object, filePath string) error {
	data, ok := m.objects[bucket+"/"+object]
	if !ok {
		return errors.New("object not found")
	}
	return os.WriteFile(filePath, data, 0o600)
}

func TestCommands_RemoteBackupRestore(t *testing.T) {
	mem := &memStorage{objects: map[string][]byte{}}
	prev := newStorage
	newStorage = func() gcs.StorageService { return mem }
	t.Cleanup(func() { newStorage = prev })

	dir := t.TempDir()
	db := filepath.Join(dir, "tx.db")
	restored := filepath.Join(dir, "restored.db")

	run := func(path string, args ...string) error {
		rootCmd.SetArgs(append(args, "--db", path))
		return rootCmd.ExecuteContext(context.Background())
	}

	require.NoError(t, run(db, "create"))
	require.NoError(t, run(db, "add", "--user", "alice", "--source", "bank", "--date", "2025-06-01",
		"--amount=-12.5", "--currency", "EUR", "--usage", "Lunch"))
	require.NoError(t, run(db, "backup", "gs://backups/tx.db"))
	assert.Contains(t, mem.objects, "backups/tx.db")

	require.NoError(t, run(restored, "restore", "gs://backups/tx.db"))

	s := store.New()
	require.NoError(t, s.LoadDatabase(context.Background(), restored))
	defer s.CloseDatabase()
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Error(t, run(restored, "restore", "gs://backups/tx.db"), "existing file is not overwritten")
	assert.Error(t, run(filepath.Join(dir, "other.db"), "restore", "gs://backups/missing.db"))
	assert.NoFileExists(t, filepath.Join(dir, "other.db"))
}
