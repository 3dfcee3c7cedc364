package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/avelarde/crosspost/internal/service"
)

// DueScanJob is the safety net behind the task queue: it sweeps posts whose
// scheduled time has passed but whose queue task got lost. The publish
// claim makes overlap with a live task a no-op.
type DueScanJob struct {
	publish service.PublishService
}

func NewDueScanJob(publish service.PublishService) *DueScanJob {
	return &DueScanJob{publish: publish}
}

func (j *DueScanJob) ScanDue() {
	ctx := context.Background()

	if err := j.publish.RunDue(ctx, time.Now()); err != nil {
		slog.Info(err.Error())
	}
}
