package testutil

import (
	"context"
	"time"

	"github.com/questx-lab/rewardissuer/config"
	"github.com/questx-lab/rewardissuer/migration"
	"github.com/questx-lab/rewardissuer/pkg/logger"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func MockConfigs() config.Configs {
	return config.Configs{
		Env:      "test",
		LogLevel: "error",
		Kafka:    config.KafkaConfigs{Topic: "reward_claim"},
		Eth: config.EthConfigs{
			Chain:                 "testnet",
			ChainID:               1337,
			RPCs:                  []string{"http://localhost:8545"},
			AdminPrivateKey:       AdminPrivateKey,
			TokenAddress:          TokenAddress,
			TokenDecimals:         18,
			ExplorerURL:           "https://explorer.test",
			GasLimit:              100000,
			GasPriceMarginPercent: 20,
		},
		Reward: config.RewardConfigs{
			ReplayGuardTTL:      10 * time.Minute,
			ReceiptPollInterval: time.Millisecond,
			ReceiptPollAttempts: 30,
			RateLimit:           5,
			RateBurst:           10,
		},
	}
}

// NewMockContext returns a context carrying test configs, a silent logger and a migrated
// in-memory sqlite database.
func NewMockContext() context.Context {
	return NewMockContextWithConfigs(MockConfigs())
}

func NewMockContextWithConfigs(cfg config.Configs) context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// Every connection to ":memory:" is a new database.
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewNopLogger())
	ctx = xcontext.WithDB(ctx, db)

	if err := migration.AutoMigrate(ctx); err != nil {
		panic(err)
	}

	return ctx
}
