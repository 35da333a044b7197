package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/transactiondb/internal/api/middleware"
	"github.com/dvloznov/transactiondb/internal/jobs"
	"github.com/dvloznov/transactiondb/internal/logger"
)

// JobsHandler handles background backup jobs.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(publisher jobs.Publisher, store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		publisher: publisher,
		store:     store,
		log:       log,
	}
}

// EnqueueBackup handles POST /api/jobs/backup
func (h *JobsHandler) EnqueueBackup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dest string `json:"dest"`
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Dest == "" {
		middleware.WriteError(w, http.StatusBadRequest, "dest is required")
		return
	}

	ctx := r.Context()
	log := logger.FromContextOr(ctx, h.log)

	job := &jobs.BackupJob{Dest: req.Dest, RequestID: middleware.GetRequestID(ctx)}
	if err := h.publisher.PublishBackup(ctx, job); err != nil {
		log.Error().Err(err).Str("dest", req.Dest).Msg("Failed to enqueue backup")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue backup")
		return
	}

	log.Info().Str("job_id", job.JobID).Str("dest", req.Dest).Msg("Backup job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		log := logger.FromContextOr(ctx, h.log)
		log.Debug().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		log := logger.FromContextOr(ctx, h.log)
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
