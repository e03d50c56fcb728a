package testutil

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/questx-lab/rewardissuer/pkg/ethutil"
	"github.com/stretchr/testify/require"
)

const (
	AdminPrivateKey = "8f2a55949038a9610f50fb23b5883af3b4ecb3c3bb792cbcefbd1542c692be63"
	TokenAddress    = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

	User1PrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	User1Address    = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"

	User2PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

func AdminAddress() string {
	key, err := ethutil.ParsePrivateKey(AdminPrivateKey)
	if err != nil {
		panic(err)
	}

	return ethutil.PrivateKeyToAddress(key).Hex()
}

func AddressOf(t *testing.T, hexKey string) string {
	key, err := ethutil.ParsePrivateKey(hexKey)
	require.NoError(t, err)

	return ethutil.PrivateKeyToAddress(key).Hex()
}

// ClaimMessage is the text a wallet signs to claim a reward.
func ClaimMessage(taskID, recipient, nonce string, expiry int64) string {
	return fmt.Sprintf("Claim reward %s for %s\nNonce: %s\nExpiry: %d", taskID, recipient, nonce, expiry)
}

// PersonalSign signs message the way browser wallets do for personal_sign.
func PersonalSign(t *testing.T, hexKey, message string) string {
	key, err := ethutil.ParsePrivateKey(hexKey)
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig)
}
