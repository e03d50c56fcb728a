package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/questx-lab/rewardissuer/internal/common"
	"github.com/questx-lab/rewardissuer/pkg/errorx"
	"github.com/questx-lab/rewardissuer/pkg/router"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
)

func WithStartTime() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		now := time.Now()
		return xcontext.WithStartTime(ctx, now), nil
	}
}

func Prometheus() router.CloserFunc {
	return func(ctx context.Context) {
		startTime := xcontext.StartTime(ctx)

		status := http.StatusOK
		if err := xcontext.Error(ctx); err != nil {
			status = errorx.CodeOf(err).HTTPStatus()
		}
		path := xcontext.HTTPRequest(ctx).URL.Path

		common.PromCounters[common.HTTPRequestTotal].
			WithLabelValues(path, fmt.Sprint(status)).Inc()
		common.PromHistograms[common.HTTPRequestDurationSeconds].
			WithLabelValues(path, fmt.Sprint(status)).Observe(time.Since(startTime).Seconds())
	}
}
