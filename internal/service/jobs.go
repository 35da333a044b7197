package service

import (
	"context"
	"fmt"

	"github.com/dvloznov/transactiondb/internal/jobs"
	"github.com/dvloznov/transactiondb/internal/logger"
)

// HandleJob runs a queued job against the service. It satisfies jobs.JobHandler.
func (s *TransactionService) HandleJob(ctx context.Context, job jobs.Job) error {
	switch j := job.(type) {
	case *jobs.BackupJob:
		fields := map[string]interface{}{"job_id": j.JobID, "dest": j.Dest, "retry": j.RetryCount}
		if j.RequestID != "" {
			fields["request_id"] = j.RequestID
		}
		log := logger.WithFields(s.log, fields)

		log.Info().Msg("Running backup job")
		if !s.BackupDatabase(ctx, j.Dest) {
			log.Warn().Msg("Backup job failed")
			return fmt.Errorf("backup to %s failed", j.Dest)
		}
		log.Info().Msg("Backup job completed")
		return nil
	default:
		return fmt.Errorf("unexpected job type: %T", job)
	}
}
