package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/questx-lab/rewardissuer/config"
)

func (s *srv) loadConfig() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Cannot load .env file: %v\n", err)
	}

	s.configs = &config.Configs{
		Env:      getEnv("ENV", "local"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: config.DatabaseConfigs{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "mysql"),
			Password: getEnv("DB_PASSWORD", "mysql"),
			Database: getEnv("DB_DATABASE", "rewardissuer"),
			File:     getEnv("DB_FILE", "reward.db"),
		},
		ApiServer: config.ServerConfigs{
			Host:           getEnv("API_HOST", "0.0.0.0"),
			Port:           getEnv("API_PORT", "8080"),
			AllowedOrigins: getListEnv("API_ALLOWED_ORIGINS", []string{"*"}),
		},
		PrometheusServer: config.ServerConfigs{
			Host: getEnv("PROMETHEUS_HOST", "0.0.0.0"),
			Port: getEnv("PROMETHEUS_PORT", "9090"),
		},
		Redis: config.RedisConfigs{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Kafka: config.KafkaConfigs{
			Addr:  getEnv("KAFKA_ADDR", ""),
			Topic: getEnv("KAFKA_REWARD_TOPIC", "reward_claim"),
		},
		Eth: config.EthConfigs{
			Chain:                 getEnv("ETH_CHAIN", "sepolia"),
			ChainID:               int64(parseInt(getEnv("ETH_CHAIN_ID", "11155111"))),
			RPCs:                  getListEnv("ETH_RPC_URL", nil),
			AdminPrivateKey:       getEnv("ADMIN_PRIVATE_KEY", ""),
			TokenAddress:          getEnv("TOKEN_CONTRACT_ADDRESS", ""),
			TokenDecimals:         int32(parseInt(getEnv("TOKEN_DECIMALS", "18"))),
			ExplorerURL:           getEnv("EXPLORER_URL", "https://sepolia.etherscan.io"),
			GasLimit:              uint64(parseInt(getEnv("GAS_LIMIT", "100000"))),
			GasPriceMarginPercent: int64(parseInt(getEnv("GAS_PRICE_MARGIN_PERCENT", "20"))),
		},
		Reward: config.RewardConfigs{
			PolicyFile:          getEnv("REWARD_POLICY_FILE", "config/reward_policy.toml"),
			ReplayGuardTTL:      parseDuration(getEnv("REPLAY_GUARD_TTL", "10m")),
			ReceiptPollInterval: parseDuration(getEnv("RECEIPT_POLL_INTERVAL", "1s")),
			ReceiptPollAttempts: parseInt(getEnv("RECEIPT_POLL_ATTEMPTS", "30")),
			RateLimit:           parseFloat(getEnv("CLAIM_RATE_LIMIT", "5")),
			RateBurst:           parseInt(getEnv("CLAIM_RATE_BURST", "10")),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}

	return fallback
}

func getListEnv(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}

	result := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}

	return result
}

func parseDuration(s string) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}

	return duration
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		panic(err)
	}

	return i
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(err)
	}

	return f
}
