package config

import (
	"errors"
	"fmt"
	"time"
)

type Configs struct {
	Env      string
	LogLevel string

	Database         DatabaseConfigs
	ApiServer        ServerConfigs
	PrometheusServer ServerConfigs
	Redis            RedisConfigs
	Kafka            KafkaConfigs
	Eth              EthConfigs
	Reward           RewardConfigs
}

type DatabaseConfigs struct {
	// Driver is either "mysql" or "sqlite".
	Driver string

	Host     string
	Port     string
	Database string
	User     string
	Password string

	// File is the sqlite database file, ":memory:" is allowed.
	File string
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host           string
	Port           string
	AllowedOrigins []string
}

func (c ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type RedisConfigs struct {
	Addr string
}

type KafkaConfigs struct {
	Addr  string
	Topic string
}

type EthConfigs struct {
	Chain   string
	ChainID int64
	RPCs    []string

	// AdminPrivateKey is the hex encoded key of the custodial account paying every reward. It
	// never leaves the process.
	AdminPrivateKey string
	TokenAddress    string
	TokenDecimals   int32
	ExplorerURL     string

	GasLimit              uint64
	GasPriceMarginPercent int64
}

type RewardConfigs struct {
	PolicyFile string

	ReplayGuardTTL      time.Duration
	ReceiptPollInterval time.Duration
	ReceiptPollAttempts int

	RateLimit float64
	RateBurst int
}

// ValidateRewardIssuer reports the settings without which no claim can ever be paid.
func (c Configs) ValidateRewardIssuer() error {
	if c.Eth.AdminPrivateKey == "" {
		return errors.New("admin private key is not configured")
	}

	if c.Eth.TokenAddress == "" {
		return errors.New("token contract address is not configured")
	}

	if len(c.Eth.RPCs) == 0 {
		return errors.New("no rpc endpoint is configured")
	}

	return nil
}
