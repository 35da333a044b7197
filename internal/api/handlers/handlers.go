package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/transactiondb/internal/api/middleware"
	"github.com/dvloznov/transactiondb/internal/ipc"
	"github.com/dvloznov/transactiondb/internal/logger"
	"github.com/dvloznov/transactiondb/internal/service"
)

// maxBodyBytes bounds a request body; bulk imports are the largest payload.
const maxBodyBytes = 32 << 20

const ipcPrefix = "/api/ipc/"

// IPCHandler exposes the ipc channels over HTTP.
type IPCHandler struct {
	router *ipc.Router
	log    zerolog.Logger
}

// NewIPCHandler creates a new ipc handler.
func NewIPCHandler(router *ipc.Router, log zerolog.Logger) *IPCHandler {
	return &IPCHandler{
		router: router,
		log:    log,
	}
}

// ListChannels handles GET /api/ipc
func (h *IPCHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels := h.router.Channels()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"channels": channels,
		"count":    len(channels),
	})
}

// Invoke handles POST /api/ipc/{channel}. The body is a JSON array of
// arguments and the reply is {"result": ...}.
func (h *IPCHandler) Invoke(w http.ResponseWriter, r *http.Request, channel string) {
	ctx := r.Context()
	log := logger.FromContextOr(ctx, h.log)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	result, err := h.router.Dispatch(ctx, channel, body)
	switch {
	case errors.Is(err, ipc.ErrUnknownChannel):
		middleware.WriteError(w, http.StatusNotFound, "Unknown channel: "+channel)
		return
	case errors.Is(err, ipc.ErrBadRequest):
		log.Warn().Err(err).Str("channel", channel).Msg("Invalid ipc arguments")
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("channel", channel).Msg("ipc dispatch failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Request failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"result": result,
	})
}

// HealthHandler reports liveness and whether a database is open.
type HealthHandler struct {
	svc *service.TransactionService
	now func() time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(svc *service.TransactionService) *HealthHandler {
	return &HealthHandler{svc: svc, now: time.Now}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":   "healthy",
		"time":     h.now().Format(time.RFC3339),
		"loaded":   h.svc.IsLoaded(),
		"database": h.svc.GetCurrentPath(),
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// NewMux registers the API routes.
func NewMux(ipcHandler *IPCHandler, jobsHandler *JobsHandler, health *HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ipc", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			ipcHandler.ListChannels(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc(ipcPrefix, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		channel := strings.TrimPrefix(r.URL.Path, ipcPrefix)
		if channel == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Channel is required")
			return
		}
		ipcHandler.Invoke(w, r, channel)
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/backup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			jobsHandler.EnqueueBackup(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			health.Health(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	return mux
}
