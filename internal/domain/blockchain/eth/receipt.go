package eth

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/questx-lab/rewardissuer/pkg/retry"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
)

// WaitReceipt polls the receipt of txHash following policy. It returns a nil receipt and a nil
// error when the transaction is still not mined after the last attempt. Errors of single polls
// are logged and never end the polling.
func WaitReceipt(
	ctx context.Context, client EthClient, txHash common.Hash, policy retry.Policy,
) (*ethtypes.Receipt, error) {
	receipt, err := retry.Poll(ctx, policy,
		func(ctx context.Context, attempt int) (*ethtypes.Receipt, bool, error) {
			receipt, err := client.TransactionReceipt(ctx, txHash)
			if errors.Is(err, ethereum.NotFound) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, err
			}

			return receipt, receipt != nil, nil
		},
		func(attempt int, err error) {
			xcontext.Logger(ctx).Warnf("Cannot get receipt for tx hash %s (attempt %d): %v",
				txHash.Hex(), attempt, err)
		},
	)

	if errors.Is(err, retry.ErrExhausted) {
		return nil, nil
	}

	return receipt, err
}
