package eth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/puzpuzpuz/xsync"
	"github.com/questx-lab/rewardissuer/pkg/ethutil"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
	"golang.org/x/sync/errgroup"
)

// TransferRequest describes one ERC20 transfer paid by From.
type TransferRequest struct {
	From                  *ecdsa.PrivateKey
	Token                 common.Address
	Recipient             common.Address
	Amount                *big.Int
	GasLimit              uint64
	GasPriceMarginPercent int64
}

type SentTransfer struct {
	Hash     common.Hash
	From     common.Address
	Nonce    uint64
	GasPrice *big.Int
}

// nonceTrustWindow is how long the local nonce mark may run ahead of the node after the last
// broadcast. A transaction dropped from the mempool would otherwise gap every later nonce.
const nonceTrustWindow = time.Minute

type account struct {
	mutex sync.Mutex

	// next is the nonce after the last transaction this process broadcast. It is only trusted
	// while known is true and lastSent is within nonceTrustWindow.
	next     uint64
	known    bool
	lastSent time.Time
}

// Sender signs and broadcasts transfers. For a given account, fetching the nonce, signing and
// broadcasting happen under one lock so concurrent transfers never share a nonce.
type Sender struct {
	client   EthClient
	chainID  *big.Int
	accounts *xsync.MapOf[string, *account]

	now func() time.Time
}

func NewSender(client EthClient, chainID int64) *Sender {
	return &Sender{
		client:   client,
		chainID:  big.NewInt(chainID),
		accounts: xsync.NewMapOf[*account](),
		now:      time.Now,
	}
}

func (s *Sender) Client() EthClient {
	return s.client
}

// Resync drops the local nonce mark of the account, the next transfer uses the pending nonce
// reported by the node. It is called when a sent transaction never got a receipt.
func (s *Sender) Resync(from common.Address) {
	acc, ok := s.accounts.Load(from.Hex())
	if !ok {
		return
	}

	acc.mutex.Lock()
	defer acc.mutex.Unlock()
	acc.known = false
}

func (s *Sender) SendTransfer(ctx context.Context, req TransferRequest) (*SentTransfer, error) {
	from := ethutil.PrivateKeyToAddress(req.From)
	acc, _ := s.accounts.LoadOrStore(from.Hex(), &account{})

	acc.mutex.Lock()
	defer acc.mutex.Unlock()

	var pendingNonce uint64
	var gasPrice *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pendingNonce, err = s.client.PendingNonceAt(gctx, from)
		if err != nil {
			return fmt.Errorf("cannot get pending nonce: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		gasPrice, err = s.client.SuggestGasPrice(gctx)
		if err != nil {
			return fmt.Errorf("cannot get gas price: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	nonce := pendingNonce
	if acc.known && acc.next > nonce && s.now().Sub(acc.lastSent) < nonceTrustWindow {
		// The node has not seen our previous transaction in its pending pool yet.
		nonce = acc.next
	}

	gasPrice = new(big.Int).Div(
		new(big.Int).Mul(gasPrice, big.NewInt(100+req.GasPriceMarginPercent)),
		big.NewInt(100),
	)

	data, err := ethutil.EncodeTransfer(req.Recipient, req.Amount)
	if err != nil {
		return nil, err
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      req.GasLimit,
		To:       &req.Token,
		Value:    common.Big0,
		Data:     data,
	})

	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(s.chainID), req.From)
	if err != nil {
		return nil, fmt.Errorf("cannot sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		if !strings.Contains(err.Error(), "already known") {
			acc.known = false
			return nil, fmt.Errorf("cannot send transaction: %w", err)
		}

		// This is a tx submission duplication, another rpc already has the same transaction.
		// Ethereum does not return error code in its JSON RPC, so we rely on string matching.
		xcontext.Logger(ctx).Warnf("Transaction %s is already known by the node", signedTx.Hash())
	}

	acc.next, acc.known, acc.lastSent = nonce+1, true, s.now()

	return &SentTransfer{
		Hash:     signedTx.Hash(),
		From:     from,
		Nonce:    nonce,
		GasPrice: gasPrice,
	}, nil
}
