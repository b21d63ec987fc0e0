package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"brokerhub/internal/reliability"
)

// backupTimeout bounds one backup run, upload included
const backupTimeout = 10 * time.Minute

// BackupJob snapshots the databases to object storage on a schedule and
// prunes expired archives afterwards.
type BackupJob struct {
	service       *reliability.BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates the periodic backup job
func NewBackupJob(service *reliability.BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name implements Job
func (j *BackupJob) Name() string { return "backup" }

// Run implements Job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if err := j.service.CreateAndUpload(ctx); err != nil {
		return err
	}

	if err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		// The backup itself succeeded; rotation retries next run
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
