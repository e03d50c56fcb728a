package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/questx-lab/rewardissuer/config"
	"github.com/questx-lab/rewardissuer/internal/domain"
	"github.com/questx-lab/rewardissuer/internal/domain/blockchain/eth"
	"github.com/questx-lab/rewardissuer/internal/domain/cron"
	"github.com/questx-lab/rewardissuer/internal/domain/replayguard"
	"github.com/questx-lab/rewardissuer/internal/domain/reward"
	"github.com/questx-lab/rewardissuer/internal/middleware"
	"github.com/questx-lab/rewardissuer/internal/repository"
	"github.com/questx-lab/rewardissuer/migration"
	"github.com/questx-lab/rewardissuer/pkg/ethutil"
	"github.com/questx-lab/rewardissuer/pkg/kafka"
	"github.com/questx-lab/rewardissuer/pkg/logger"
	"github.com/questx-lab/rewardissuer/pkg/pubsub"
	"github.com/questx-lab/rewardissuer/pkg/router"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
	"github.com/questx-lab/rewardissuer/pkg/xredis"
	"github.com/urfave/cli/v2"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type srv struct {
	app *cli.App
	ctx context.Context

	configs *config.Configs
	logger  logger.Logger

	ethClient   eth.EthClient
	guard       replayguard.Guard
	publisher   pubsub.Publisher
	rateLimiter *middleware.RateLimiter
	cronManager *cron.CronJobManager

	rewardClaimRepo repository.RewardClaimRepository

	rewardDomain domain.RewardDomain

	router *router.Router
	server *http.Server

	closers []closer
}

type closer struct {
	name  string
	close func() error
}

// onClose registers a resource released by closeAll.
func (s *srv) onClose(name string, fn func() error) {
	s.closers = append(s.closers, closer{name: name, close: fn})
}

// closeAll releases the registered resources, the most recently loaded first.
func (s *srv) closeAll() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].close(); err != nil {
			xcontext.Logger(s.ctx).Errorf("Cannot close %s: %v", s.closers[i].name, err)
		}
	}
	s.closers = nil
}

func (s *srv) loadLogger() {
	s.logger = logger.NewLogger(s.configs.LogLevel)
	s.ctx = xcontext.WithConfigs(context.Background(), *s.configs)
	s.ctx = xcontext.WithLogger(s.ctx, s.logger)
}

func (s *srv) newDatabase() *gorm.DB {
	var dialector gorm.Dialector
	switch s.configs.Database.Driver {
	case "mysql":
		dialector = mysql.New(mysql.Config{
			DSN:                       s.configs.Database.ConnectionString(), // data source name
			DefaultStringSize:         256,                                   // default size for string fields
			DisableDatetimePrecision:  true,                                  // disable datetime precision, which not supported before MySQL 5.6
			DontSupportRenameIndex:    true,                                  // drop & create when rename index, rename index not supported before MySQL 5.7, MariaDB
			DontSupportRenameColumn:   true,                                  // `change` when rename column, rename column not supported before MySQL 8, MariaDB
			SkipInitializeWithVersion: false,                                 // auto configure based on currently MySQL version
		})
	case "sqlite":
		dialector = sqlite.Open(s.configs.Database.File)
	default:
		panic("unsupported database driver " + s.configs.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		panic(err)
	}

	if s.configs.Database.Driver == "sqlite" {
		// sqlite allows a single writer.
		sqlDB, err := db.DB()
		if err != nil {
			panic(err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db
}

func (s *srv) migrateDB() {
	var err error
	if s.configs.Database.Driver == "sqlite" {
		err = migration.AutoMigrate(s.ctx)
	} else {
		err = migration.Migrate(s.ctx)
	}

	if err != nil {
		panic(err)
	}
}

func (s *srv) loadDatabase() {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
}

func (s *srv) loadEthClient() {
	ethClient := eth.NewEthClient(s.configs.Eth.Chain, s.configs.Eth.RPCs)
	s.ethClient = ethClient
	s.onClose("eth client", func() error {
		ethClient.Close()
		return nil
	})
}

// loadReplayGuard shares the guard through redis when it is configured, so every replica sees
// the same entries. Otherwise the guard lives in this process.
func (s *srv) loadReplayGuard() {
	if s.configs.Redis.Addr == "" {
		s.guard = replayguard.NewMemoryGuard()
		return
	}

	redisClient, err := xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}

	s.guard = replayguard.NewRedisGuard(redisClient, s.configs.Reward.ReplayGuardTTL)
	s.onClose("redis client", redisClient.Close)
}

func (s *srv) loadPublisher() {
	if s.configs.Kafka.Addr == "" {
		s.publisher = pubsub.NewNopPublisher()
		return
	}

	publisher, err := kafka.NewPublisher("rewardissuer", strings.Split(s.configs.Kafka.Addr, ","))
	if err != nil {
		panic(err)
	}

	s.publisher = publisher
	s.onClose("kafka publisher", func() error { return publisher.Stop(s.ctx) })
}

func (s *srv) loadRepos() {
	s.rewardClaimRepo = repository.NewRewardClaimRepository()
}

func (s *srv) loadDomains() {
	policy, err := reward.LoadPolicy(s.configs.Reward.PolicyFile)
	if err != nil {
		panic(err)
	}
	log.Printf("Loaded reward policy %s with %d tasks\n", policy.Version, len(policy.Tasks))

	issuer := reward.NewIssuer(
		eth.NewSender(s.ethClient, s.configs.Eth.ChainID),
		ethutil.NewPersonalSignVerifier(),
		s.guard,
		policy,
		s.rewardClaimRepo,
		s.publisher,
	)

	s.rewardDomain = domain.NewRewardDomain(issuer, s.ethClient, s.rewardClaimRepo)
}

func (s *srv) loadCronJobs() {
	s.cronManager = cron.NewCronJobManager()
	s.cronManager.Register(cron.NewClearReplayGuardCronJob(s.guard, s.configs.Reward.ReplayGuardTTL))
	s.cronManager.Register(cron.NewCleanupRateLimiterCronJob(s.rateLimiter))
	s.cronManager.Register(cron.NewReconcileRewardClaimCronJob(s.rewardClaimRepo, s.ethClient))
}
