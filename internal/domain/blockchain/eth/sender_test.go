package eth

import (
	"errors"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/questx-lab/rewardissuer/mocks"
	"github.com/questx-lab/rewardissuer/pkg/ethutil"
	"github.com/questx-lab/rewardissuer/pkg/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTransferRequest(t *testing.T) TransferRequest {
	key, err := ethutil.ParsePrivateKey(testutil.AdminPrivateKey)
	require.NoError(t, err)

	return TransferRequest{
		From:                  key,
		Token:                 common.HexToAddress(testutil.TokenAddress),
		Recipient:             common.HexToAddress(testutil.User1Address),
		Amount:                big.NewInt(1000),
		GasLimit:              100000,
		GasPriceMarginPercent: 20,
	}
}

func Test_Sender_SendTransfer(t *testing.T) {
	ctx := testutil.NewMockContext()
	req := newTransferRequest(t)

	client := &mocks.EthClient{}
	client.On("PendingNonceAt", mock.Anything, ethutil.PrivateKeyToAddress(req.From)).Return(uint64(5), nil)
	client.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(5000000000), nil)
	client.On("SendTransaction", mock.Anything, mock.Anything).Return(nil)

	sender := NewSender(client, 1337)
	sent, err := sender.SendTransfer(ctx, req)
	require.NoError(t, err)
	require.Equal(t, uint64(5), sent.Nonce)
	require.Equal(t, big.NewInt(6000000000), sent.GasPrice)
	require.Equal(t, ethutil.PrivateKeyToAddress(req.From), sent.From)

	txs := client.SentTransactions()
	require.Len(t, txs, 1)
	tx := txs[0]
	require.Equal(t, sent.Hash, tx.Hash())
	require.Equal(t, uint64(100000), tx.Gas())
	require.Equal(t, req.Token, *tx.To())
	require.Zero(t, tx.Value().Sign())
	require.Equal(t, big.NewInt(1337), tx.ChainId())

	signer, err := ethtypes.Sender(ethtypes.NewEIP155Signer(big.NewInt(1337)), tx)
	require.NoError(t, err)
	require.Equal(t, sent.From, signer)

	recipient, amount, err := ethutil.DecodeTransfer(tx.Data())
	require.NoError(t, err)
	require.Equal(t, req.Recipient, recipient)
	require.Equal(t, req.Amount, amount)
}

func Test_Sender_SendTransfer_AlreadyKnown(t *testing.T) {
	ctx := testutil.NewMockContext()

	client := &mocks.EthClient{}
	client.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(0), nil)
	client.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(100), nil)
	client.On("SendTransaction", mock.Anything, mock.Anything).Return(errors.New("already known"))

	sent, err := NewSender(client, 1337).SendTransfer(ctx, newTransferRequest(t))
	require.NoError(t, err)
	require.Equal(t, uint64(0), sent.Nonce)
}

func Test_Sender_SendTransfer_FetchFailed(t *testing.T) {
	ctx := testutil.NewMockContext()

	client := &mocks.EthClient{}
	client.On("PendingNonceAt", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	client.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(100), nil)

	_, err := NewSender(client, 1337).SendTransfer(ctx, newTransferRequest(t))
	require.ErrorContains(t, err, "connection refused")
	client.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func Test_Sender_SendTransfer_BroadcastFailureResetsNonce(t *testing.T) {
	ctx := testutil.NewMockContext()
	req := newTransferRequest(t)

	client := &mocks.EthClient{}
	client.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(7), nil)
	client.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(100), nil)
	client.On("SendTransaction", mock.Anything, mock.Anything).Return(nil).Once()
	client.On("SendTransaction", mock.Anything, mock.Anything).Return(errors.New("insufficient funds")).Once()
	client.On("SendTransaction", mock.Anything, mock.Anything).Return(nil).Once()

	sender := NewSender(client, 1337)

	sent, err := sender.SendTransfer(ctx, req)
	require.NoError(t, err)
	require.Equal(t, uint64(7), sent.Nonce)

	// The node still reports 7, the local mark moves to 8.
	_, err = sender.SendTransfer(ctx, req)
	require.ErrorContains(t, err, "insufficient funds")

	// After a failed broadcast only the node is trusted again.
	sent, err = sender.SendTransfer(ctx, req)
	require.NoError(t, err)
	require.Equal(t, uint64(7), sent.Nonce)
}

func Test_Sender_SendTransfer_DroppedTransaction(t *testing.T) {
	ctx := testutil.NewMockContext()
	req := newTransferRequest(t)

	client := &mocks.EthClient{}
	// Transaction 5 was dropped, the node never moves past it.
	client.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(5), nil)
	client.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(100), nil)
	client.On("SendTransaction", mock.Anything, mock.Anything).Return(nil)

	now := time.Unix(1_700_000_000, 0)
	sender := NewSender(client, 1337)
	sender.now = func() time.Time { return now }

	nonces := []uint64{}
	for i := 0; i < 3; i++ {
		sent, err := sender.SendTransfer(ctx, req)
		require.NoError(t, err)
		nonces = append(nonces, sent.Nonce)
	}
	require.Equal(t, []uint64{5, 6, 7}, nonces)

	// Once the local mark is stale the node is trusted again.
	now = now.Add(nonceTrustWindow)
	sent, err := sender.SendTransfer(ctx, req)
	require.NoError(t, err)
	require.Equal(t, uint64(5), sent.Nonce)

	sent, err = sender.SendTransfer(ctx, req)
	require.NoError(t, err)
	require.Equal(t, uint64(6), sent.Nonce)

	// Resync drops the mark right away.
	sender.Resync(sent.From)
	sent, err = sender.SendTransfer(ctx, req)
	require.NoError(t, err)
	require.Equal(t, uint64(5), sent.Nonce)
}

func Test_Sender_SendTransfer_ConcurrentNonces(t *testing.T) {
	ctx := testutil.NewMockContext()
	req := newTransferRequest(t)

	client := &mocks.EthClient{}
	// A lagging node keeps reporting the same pending nonce.
	client.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(5), nil)
	client.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(100), nil)
	client.On("SendTransaction", mock.Anything, mock.Anything).Return(nil)

	sender := NewSender(client, 1337)

	const n = 16
	var wg sync.WaitGroup
	nonces := make([]uint64, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sent, err := sender.SendTransfer(ctx, req)
			errs[i] = err
			if err == nil {
				nonces[i] = sent.Nonce
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })
	for i := range nonces {
		require.Equal(t, uint64(5+i), nonces[i])
	}
}
