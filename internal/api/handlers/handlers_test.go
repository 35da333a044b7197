package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/transactiondb/internal/api/middleware"
	"github.com/dvloznov/transactiondb/internal/ipc"
	"github.com/dvloznov/transactiondb/internal/jobs"
	"github.com/dvloznov/transactiondb/internal/jobs/inmemory"
	"github.com/dvloznov/transactiondb/internal/service"
	"github.com/dvloznov/transactiondb/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.New(store.New())
	t.Cleanup(func() { svc.CloseDatabase() })

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, jobStore, inmemory.WithBackoff(func(int) time.Duration { return time.Millisecond }))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, queue.Start(ctx, svc.HandleJob))
	t.Cleanup(func() {
		cancel()
		_ = queue.Close()
	})

	mux := NewMux(
		NewIPCHandler(ipc.NewRouter(svc), zerolog.Nop()),
		NewJobsHandler(queue, jobStore, zerolog.Nop()),
		NewHealthHandler(svc),
	)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, channel, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/ipc/"+channel, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestInvoke(t *testing.T) {
	srv := newTestServer(t)
	dbPath := filepath.Join(t.TempDir(), "a.db")
	pathArg, _ := json.Marshal([]string{dbPath})

	code, out := post(t, srv, "database:create", string(pathArg))
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `true`, string(out["result"]))

	tx := `[{"id":"tx-1","user":"alice","source":"bank","date":"2025-06-01","amount":-50.25,"currency":"EUR","usage":"Groceries","category":{"name":"Food","subcategory":"Groceries"}}]`
	code, out = post(t, srv, "transaction:add", tx)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `true`, string(out["result"]))

	code, out = post(t, srv, "transaction:count", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `1`, string(out["result"]))

	code, out = post(t, srv, "transaction:get-by-id", `["tx-1"]`)
	require.Equal(t, http.StatusOK, code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(out["result"], &got))
	assert.Equal(t, "alice", got["user"])
	assert.Equal(t, "2025-06-01T00:00:00Z", got["date"])
	assert.Equal(t, map[string]any{"name": "Food", "subcategory": "Groceries"}, got["category"])

	code, out = post(t, srv, "transaction:get-by-id", `["missing"]`)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `null`, string(out["result"]))

	code, out = post(t, srv, "transaction:paginated", `[1, 10]`)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Total      int               `json:"total"`
		TotalPages int               `json:"totalPages"`
		Items      []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(out["result"], &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Items, 1)

	code, out = post(t, srv, "database:get-path", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, string(mustJSON(t, dbPath)), string(out["result"]))
}

func TestInvoke_Unloaded(t *testing.T) {
	srv := newTestServer(t)

	code, out := post(t, srv, "transaction:get-all", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(out["result"]))

	code, out = post(t, srv, "database:get-path", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `null`, string(out["result"]))
}

func TestInvoke_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
	}{
		{name: "unknown channel", method: http.MethodPost, path: "/api/ipc/database:select-file", wantCode: http.StatusNotFound},
		{name: "bad args", method: http.MethodPost, path: "/api/ipc/transaction:remove", body: `{"id":"x"}`, wantCode: http.StatusBadRequest},
		{name: "missing args", method: http.MethodPost, path: "/api/ipc/database:load", body: `[]`, wantCode: http.StatusBadRequest},
		{name: "empty channel", method: http.MethodPost, path: "/api/ipc/", wantCode: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodGet, path: "/api/ipc/transaction:count", wantCode: http.StatusMethodNotAllowed},
		{name: "health post", method: http.MethodPost, path: "/health", wantCode: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			var out map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestListChannels(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/ipc")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		Channels []string `json:"channels"`
		Count    int      `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 18, out.Count)
	assert.Contains(t, out.Channels, "transaction:add-bulk")
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, false, out["loaded"])
	assert.Nil(t, out["database"])
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func getJob(t *testing.T, srv *httptest.Server, id string) (int, jobs.BackupJob) {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/jobs/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()

	var job jobs.BackupJob
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	}
	return resp.StatusCode, job
}

func TestBackupJobs(t *testing.T) {
	srv := newTestServer(t)
	dir := t.TempDir()
	pathArg, _ := json.Marshal([]string{filepath.Join(dir, "a.db")})
	code, _ := post(t, srv, "database:create", string(pathArg))
	require.Equal(t, http.StatusOK, code)

	dest := filepath.Join(dir, "backup.db")
	body, _ := json.Marshal(map[string]string{"dest": dest})
	resp, err := http.Post(srv.URL+"/api/jobs/backup", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var queued jobs.BackupJob
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&queued))
	require.NotEmpty(t, queued.JobID)
	assert.Equal(t, dest, queued.Dest)

	require.Eventually(t, func() bool {
		code, job := getJob(t, srv, queued.JobID)
		return code == http.StatusOK && job.Status == jobs.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
	assert.FileExists(t, dest)

	listResp, err := http.Get(srv.URL + "/api/jobs?status=completed")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var list struct {
		Jobs  []jobs.BackupJob `json:"jobs"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	assert.Equal(t, 1, list.Count)

	code, _ = getJob(t, srv, "does-not-exist")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBackupJobs_BadRequest(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{`not json`, `{}`, `{"dest":""}`} {
		resp, err := http.Post(srv.URL+"/api/jobs/backup", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestRequestScopedLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	svc := service.New(store.New())
	t.Cleanup(func() { svc.CloseDatabase() })

	// Not started: enqueued jobs stay pending.
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, jobStore)
	t.Cleanup(func() { _ = queue.Close() })

	mux := NewMux(
		NewIPCHandler(ipc.NewRouter(svc), zerolog.Nop()),
		NewJobsHandler(queue, jobStore, zerolog.Nop()),
		NewHealthHandler(svc),
	)
	srv := httptest.NewServer(middleware.RequestID(zerolog.New(buf))(mux))
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/ipc/"+ipc.ChannelGetTransactionByID, strings.NewReader(`{"id":"x"}`))
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-ipc")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, buf.String(), `"request_id":"req-ipc"`)

	req, err = http.NewRequest(http.MethodPost, srv.URL+"/api/jobs/backup", strings.NewReader(`{"dest":"/tmp/x.db"}`))
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-job")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var job jobs.BackupJob
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	assert.Equal(t, "req-job", job.RequestID)
	assert.Contains(t, buf.String(), `"request_id":"req-job"`)
	assert.Contains(t, buf.String(), "Backup job enqueued")
}
