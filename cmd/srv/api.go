package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/questx-lab/rewardissuer/internal/middleware"
	"github.com/questx-lab/rewardissuer/pkg/prometheus"
	"github.com/questx-lab/rewardissuer/pkg/router"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(*cli.Context) error {
	if err := s.configs.ValidateRewardIssuer(); err != nil {
		return err
	}

	s.loadDatabase()
	s.loadEthClient()
	s.loadReplayGuard()
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()
	s.loadRouter()
	s.loadCronJobs()

	go s.cronManager.Start(s.ctx)
	go s.startPrometheus()

	s.server = &http.Server{
		Addr:    s.configs.ApiServer.Address(),
		Handler: s.router.Handler(s.configs.ApiServer.AllowedOrigins),
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		s.cronManager.Cancel(s.ctx)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			xcontext.Logger(s.ctx).Errorf("Cannot shutdown server: %v", err)
		}

		s.closeAll()
	}()

	xcontext.Logger(s.ctx).Infof("Starting server on %s", s.configs.ApiServer.Address())
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.closeAll()
		return err
	}

	<-stopped

	log.Printf("Server stop")
	return nil
}

func (s *srv) startPrometheus() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", prometheus.NewHandler())

	xcontext.Logger(s.ctx).Infof("Starting prometheus on %s", s.configs.PrometheusServer.Address())
	if err := http.ListenAndServe(s.configs.PrometheusServer.Address(), mux); err != nil {
		xcontext.Logger(s.ctx).Errorf("Prometheus server stopped: %v", err)
	}
}

func (s *srv) loadRouter() {
	s.router = router.New(s.ctx)
	s.router.Before(middleware.WithStartTime())
	s.router.After(middleware.Logger())
	s.router.After(middleware.Prometheus())

	router.GET(s.router, "/health", s.rewardDomain.Health)
	router.GET(s.router, "/getRewardClaim", s.rewardDomain.GetRewardClaim)
	router.GET(s.router, "/getRewardClaims", s.rewardDomain.GetRewardClaims)

	s.rateLimiter = middleware.NewRateLimiter(s.configs.Reward.RateLimit, s.configs.Reward.RateBurst)
	claimRouter := s.router.Branch()
	claimRouter.Before(s.rateLimiter.Middleware())
	{
		router.POST(claimRouter, "/claimReward", s.rewardDomain.Claim)
	}
}
