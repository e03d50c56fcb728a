package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
)

const (
	RpcTimeOut      = time.Second * 5
	MaxShuffleTimes = 20
)

var ErrNoRPC = errors.New("no rpc configured")

// A wrapper around eth.client so that we can mock in issuer tests.
type EthClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Default implementation of ETH client. Since eth RPC often unstable, this client keeps a list
// of RPCs and moves on to the next one when a call fails.
type defaultEthClient struct {
	chain string
	rpcs  []string

	clients []*ethclient.Client
	mutex   sync.RWMutex
}

func NewEthClient(chain string, rpcs []string) *defaultEthClient {
	return &defaultEthClient{
		chain: chain,
		rpcs:  rpcs,
	}
}

func (c *defaultEthClient) dial(ctx context.Context) ([]*ethclient.Client, []string) {
	c.mutex.RLock()
	if c.clients != nil {
		defer c.mutex.RUnlock()
		return c.clients, c.rpcs
	}
	c.mutex.RUnlock()

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.clients != nil {
		return c.clients, c.rpcs
	}

	clients := make([]*ethclient.Client, 0, len(c.rpcs))
	rpcs := make([]string, 0, len(c.rpcs))
	for _, rpc := range c.rpcs {
		client, err := ethclient.DialContext(ctx, rpc)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot dial rpc %s of chain %s: %v", rpc, c.chain, err)
			continue
		}

		clients = append(clients, client)
		rpcs = append(rpcs, rpc)
	}

	if len(clients) > 0 {
		c.clients, c.rpcs = clients, rpcs
	}

	return clients, rpcs
}

func (c *defaultEthClient) shuffle(ctx context.Context) ([]*ethclient.Client, []string) {
	allClients, allRpcs := c.dial(ctx)

	n := len(allClients)
	if n == 0 {
		return nil, nil
	}

	clients := make([]*ethclient.Client, n)
	rpcs := make([]string, n)
	copy(clients, allClients)
	copy(rpcs, allRpcs)

	for i := 0; i < MaxShuffleTimes; i++ {
		x := rand.Intn(n)
		y := rand.Intn(n)

		clients[x], clients[y] = clients[y], clients[x]
		rpcs[x], rpcs[y] = rpcs[y], rpcs[x]
	}

	return clients, rpcs
}

// execute runs f against the rpcs in a random order until one of them answers. NotFound is an
// answer, not a failure.
func (c *defaultEthClient) execute(
	ctx context.Context, f func(ctx context.Context, client *ethclient.Client) (any, error),
) (any, error) {
	clients, rpcs := c.shuffle(ctx)
	if len(clients) == 0 {
		return nil, fmt.Errorf("chain %s: %w", c.chain, ErrNoRPC)
	}

	var lastErr error
	for i, client := range clients {
		callCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
		ret, err := f(callCtx, client)
		cancel()

		if err == nil || errors.Is(err, ethereum.NotFound) {
			return ret, err
		}

		xcontext.Logger(ctx).Warnf("Rpc %s of chain %s failed: %v", rpcs[i], c.chain, err)
		lastErr = err
	}

	return nil, lastErr
}

func (c *defaultEthClient) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, client := range c.clients {
		client.Close()
	}
	c.clients = nil
}

func (c *defaultEthClient) BlockNumber(ctx context.Context) (uint64, error) {
	num, err := c.execute(ctx, func(ctx context.Context, client *ethclient.Client) (any, error) {
		return client.BlockNumber(ctx)
	})

	if err != nil {
		return 0, err
	}

	return num.(uint64), nil
}

func (c *defaultEthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	nonce, err := c.execute(ctx, func(ctx context.Context, client *ethclient.Client) (any, error) {
		return client.PendingNonceAt(ctx, account)
	})

	if err != nil {
		return 0, err
	}

	return nonce.(uint64), nil
}

func (c *defaultEthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	gas, err := c.execute(ctx, func(ctx context.Context, client *ethclient.Client) (any, error) {
		return client.SuggestGasPrice(ctx)
	})

	if err != nil {
		return nil, err
	}

	return gas.(*big.Int), nil
}

func (c *defaultEthClient) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	_, err := c.execute(ctx, func(ctx context.Context, client *ethclient.Client) (any, error) {
		return nil, client.SendTransaction(ctx, tx)
	})

	return err
}

func (c *defaultEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	receipt, err := c.execute(ctx, func(ctx context.Context, client *ethclient.Client) (any, error) {
		return client.TransactionReceipt(ctx, txHash)
	})

	if err != nil {
		return nil, err
	}

	return receipt.(*ethtypes.Receipt), nil
}
