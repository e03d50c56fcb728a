package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigs_ValidateRewardIssuer(t *testing.T) {
	cfg := Configs{Eth: EthConfigs{
		AdminPrivateKey: "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		TokenAddress:    "0x1111111111111111111111111111111111111111",
		RPCs:            []string{"http://localhost:8545"},
	}}
	require.NoError(t, cfg.ValidateRewardIssuer())

	noKey := cfg
	noKey.Eth.AdminPrivateKey = ""
	require.EqualError(t, noKey.ValidateRewardIssuer(), "admin private key is not configured")

	noToken := cfg
	noToken.Eth.TokenAddress = ""
	require.EqualError(t, noToken.ValidateRewardIssuer(), "token contract address is not configured")
}

func TestDatabaseConfigs_ConnectionString(t *testing.T) {
	d := DatabaseConfigs{User: "u", Password: "p", Host: "h", Port: "3306", Database: "reward"}
	require.Equal(t, "u:p@tcp(h:3306)/reward?charset=utf8mb4&parseTime=True&loc=Local", d.ConnectionString())
}
