package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/transactiondb/internal/domain"
	"github.com/dvloznov/transactiondb/internal/service"
	"github.com/dvloznov/transactiondb/internal/store"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	svc := service.New(store.New())
	t.Cleanup(func() { svc.CloseDatabase() })
	return NewRouter(svc)
}

func call(t *testing.T, r *Router, channel string, args ...any) any {
	t.Helper()
	body, err := json.Marshal(args)
	require.NoError(t, err)
	out, err := r.Dispatch(context.Background(), channel, body)
	require.NoError(t, err, channel)
	return out
}

func TestChannels(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, []string{
		"database:close",
		"database:create",
		"database:get-path",
		"database:is-loaded",
		"database:load",
		"transaction:add",
		"transaction:add-bulk",
		"transaction:backup",
		"transaction:count",
		"transaction:get-all",
		"transaction:get-by-category",
		"transaction:get-by-date-range",
		"transaction:get-by-id",
		"transaction:get-by-user",
		"transaction:paginated",
		"transaction:remove",
		"transaction:search",
		"transaction:update",
	}, r.Channels())
}

func TestDispatch_Errors(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	_, err := r.Dispatch(ctx, "database:select-file", nil)
	assert.ErrorIs(t, err, ErrUnknownChannel)

	tests := []struct {
		channel string
		body    string
	}{
		{ChannelLoadDatabase, `{"path":"a.db"}`},
		{ChannelLoadDatabase, `[]`},
		{ChannelRemoveTransaction, `[42]`},
		{ChannelGetTransactionsByDate, `["2025-06-01"]`},
		{ChannelGetTransactionsByDate, `["yesterday","today"]`},
		{ChannelAddTransaction, `[{"date":"soon"}]`},
		{ChannelGetTransactionsPaginated, `["one"]`},
	}
	for _, tt := range tests {
		t.Run(tt.channel+" "+tt.body, func(t *testing.T) {
			_, err := r.Dispatch(ctx, tt.channel, []byte(tt.body))
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}
}

func TestDispatch_Lifecycle(t *testing.T) {
	r := newTestRouter(t)
	path := filepath.Join(t.TempDir(), "a.db")

	assert.Equal(t, false, call(t, r, ChannelIsDatabaseLoaded))
	assert.Nil(t, call(t, r, ChannelGetDatabasePath))
	assert.Equal(t, true, call(t, r, ChannelCreateDatabase, path))
	assert.Equal(t, true, call(t, r, ChannelIsDatabaseLoaded))

	got := call(t, r, ChannelGetDatabasePath)
	require.IsType(t, (*string)(nil), got)
	assert.Equal(t, path, *got.(*string))

	assert.Equal(t, true, call(t, r, ChannelCloseDatabase))
	assert.Equal(t, true, call(t, r, ChannelLoadDatabase, path))
	assert.Equal(t, false, call(t, r, ChannelLoadDatabase, filepath.Join(t.TempDir(), "missing.db")))
}

func TestDispatch_Transactions(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, true, call(t, r, ChannelCreateDatabase, filepath.Join(t.TempDir(), "a.db")))

	groceries := map[string]any{
		"id": "tx-1", "user": "alice", "source": "bank", "date": "2025-06-01",
		"amount": -50.25, "currency": "EUR", "usage": "Groceries",
		"category": map[string]string{"name": "Food", "subcategory": "Groceries"},
	}
	bulk := []map[string]any{
		{"id": "tx-2", "user": "alice", "source": "bank", "date": 1748995200, "amount": -4.5,
			"currency": "EUR", "usage": "Coffee", "category": map[string]string{"name": "Food", "subcategory": "Beverages"}},
		{"id": "tx-3", "user": "bob", "source": "credit card", "date": "2025-06-10T08:00:00Z", "amount": 3000,
			"currency": "EUR", "usage": "Salary"},
	}

	assert.Equal(t, true, call(t, r, ChannelAddTransaction, groceries))
	assert.Equal(t, false, call(t, r, ChannelAddTransaction, groceries), "duplicate id")
	assert.Equal(t, true, call(t, r, ChannelAddTransactions, bulk))
	assert.Equal(t, 3, call(t, r, ChannelGetTransactionCount))

	byID := call(t, r, ChannelGetTransactionByID, "tx-2")
	require.IsType(t, (*domain.Transaction)(nil), byID)
	assert.Equal(t, int64(1748995200), byID.(*domain.Transaction).Date.Unix())
	assert.Nil(t, call(t, r, ChannelGetTransactionByID, "nope"))

	assert.Len(t, call(t, r, ChannelGetAllTransactions), 3)
	assert.Len(t, call(t, r, ChannelGetTransactionsByUser, "alice"), 2)
	assert.Len(t, call(t, r, ChannelGetTransactionsByCategory, "Food"), 2)
	assert.Len(t, call(t, r, ChannelGetTransactionsByCategory, "Food", "Groceries"), 1)
	assert.Len(t, call(t, r, ChannelGetTransactionsByCategory, "Food", nil), 2)
	assert.Len(t, call(t, r, ChannelGetTransactionsByDate, "2025-06-01", 1749081599000), 2)
	assert.Len(t, call(t, r, ChannelSearchTransactions, map[string]any{"searchText": "coff", "user": "alice"}), 1)
	assert.Len(t, call(t, r, ChannelSearchTransactions), 3)

	page := call(t, r, ChannelGetTransactionsPaginated, 2, 2)
	require.IsType(t, (*domain.Page)(nil), page)
	assert.Equal(t, domain.Page{Items: page.(*domain.Page).Items, Total: 3, Page: 2, TotalPages: 2}, *page.(*domain.Page))
	assert.Len(t, page.(*domain.Page).Items, 1)

	groceries["amount"] = -75.5
	assert.Equal(t, true, call(t, r, ChannelUpdateTransaction, groceries))
	assert.Equal(t, -75.5, call(t, r, ChannelGetTransactionByID, "tx-1").(*domain.Transaction).Amount)

	assert.Equal(t, true, call(t, r, ChannelRemoveTransaction, "tx-1"))
	assert.Equal(t, 2, call(t, r, ChannelGetTransactionCount))

	dest := filepath.Join(t.TempDir(), "backup.db")
	assert.Equal(t, true, call(t, r, ChannelBackupDatabase, dest))
}

func TestDispatch_ResultsEncode(t *testing.T) {
	r := newTestRouter(t)

	out := call(t, r, ChannelGetAllTransactions)
	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b), "unloaded list encodes as an empty array")

	out = call(t, r, ChannelGetTransactionsPaginated, 1, 10)
	b, err = json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"total":0,"page":1,"totalPages":0}`, string(b))
}

func TestParseArgs(t *testing.T) {
	for _, body := range []string{"", "  ", "null"} {
		args, err := ParseArgs([]byte(body))
		require.NoError(t, err, fmt.Sprintf("%q", body))
		assert.Empty(t, args)
	}

	args, err := ParseArgs([]byte(`["a", null, 3]`))
	require.NoError(t, err)
	require.Len(t, args, 3)

	var s string
	assert.NoError(t, args.Decode(0, &s))
	assert.Equal(t, "a", s)
	assert.ErrorIs(t, args.Decode(1, &s), ErrBadRequest)
	assert.NoError(t, args.DecodeOptional(1, &s))
	assert.Equal(t, "a", s, "null optional leaves value untouched")
	assert.ErrorIs(t, args.Decode(5, &s), ErrBadRequest)

	d, err := args.Date(2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.Unix())
}
