package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/icec/internal/metrics"
)

type expiredPendingDeleter interface {
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

// PendingCleanupJob removes pending registrations whose OTP has expired so
// their emails can register again.
type PendingCleanupJob struct {
	pending expiredPendingDeleter
	metrics metrics.Recorder
	now     func() time.Time
}

func NewPendingCleanupJob(pending expiredPendingDeleter, recorder metrics.Recorder) *PendingCleanupJob {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &PendingCleanupJob{pending: pending, metrics: recorder, now: time.Now}
}

func (j *PendingCleanupJob) Name() string {
	return "pending_cleanup"
}

func (j *PendingCleanupJob) Run(ctx context.Context) error {
	if j.pending == nil {
		return nil
	}
	removed, err := j.pending.DeleteExpired(ctx, j.now().Unix())
	if err != nil {
		return err
	}
	j.metrics.RecordPendingSwept(removed)
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired pending registrations removed", zap.Int64("count", removed))
	}
	return nil
}
