package cron

import (
	"context"
	"time"

	"github.com/questx-lab/rewardissuer/internal/domain/replayguard"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
)

// ClearReplayGuardCronJob empties the replay guard periodically. A nonce can be reused once the
// entry is gone, which is bounded by the claim expiry anyway.
type ClearReplayGuardCronJob struct {
	guard    replayguard.Guard
	interval time.Duration
}

func NewClearReplayGuardCronJob(guard replayguard.Guard, interval time.Duration) *ClearReplayGuardCronJob {
	return &ClearReplayGuardCronJob{guard: guard, interval: interval}
}

func (job *ClearReplayGuardCronJob) Do(ctx context.Context) {
	if err := job.guard.Clear(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot clear replay guard: %v", err)
	}
}

func (job *ClearReplayGuardCronJob) RunNow() bool {
	return false
}

func (job *ClearReplayGuardCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
