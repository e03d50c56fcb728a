package cron

import (
	"context"
	"time"
)

type idleCleaner interface {
	Cleanup(idle time.Duration)
}

type CleanupRateLimiterCronJob struct {
	limiter idleCleaner
}

func NewCleanupRateLimiterCronJob(limiter idleCleaner) *CleanupRateLimiterCronJob {
	return &CleanupRateLimiterCronJob{limiter: limiter}
}

func (job *CleanupRateLimiterCronJob) Do(context.Context) {
	job.limiter.Cleanup(time.Hour)
}

func (job *CleanupRateLimiterCronJob) RunNow() bool {
	return false
}

func (job *CleanupRateLimiterCronJob) Next() time.Time {
	return time.Now().Add(10 * time.Minute)
}
