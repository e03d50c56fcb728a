package common

import "github.com/prometheus/client_golang/prometheus"

const (
	HTTPRequestTotal           = "http_requests_total"
	HTTPRequestDurationSeconds = "http_request_duration_seconds"
	RewardClaimsTotal          = "reward_claims_total"
	RewardTransferFailure      = "reward_transfer_failure"
)

var (
	PromCounters = map[string]*prometheus.CounterVec{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestTotal,
			Help: "Count of all HTTP requests",
		}, []string{"method", "status_code"}),
		RewardClaimsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: RewardClaimsTotal,
			Help: "Count of reward claims by outcome",
		}, []string{"result"}),
		RewardTransferFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: RewardTransferFailure,
			Help: "Count of reward transfers which failed at the rpc or on chain",
		}, []string{"stage"}),
	}

	PromHistograms = map[string]*prometheus.HistogramVec{
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: HTTPRequestDurationSeconds,
			Help: "Duration of all HTTP requests",
		}, []string{"method", "status_code"}),
	}
)
