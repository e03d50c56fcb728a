package cron

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/questx-lab/rewardissuer/internal/domain/blockchain/eth"
	"github.com/questx-lab/rewardissuer/internal/entity"
	"github.com/questx-lab/rewardissuer/internal/repository"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
)

const reconcileBatchSize = 50

// ReconcileRewardClaimCronJob looks up the receipts of transfers which were still unmined when
// the claim request returned, and records their final outcome.
type ReconcileRewardClaimCronJob struct {
	claimRepo repository.RewardClaimRepository
	client    eth.EthClient
}

func NewReconcileRewardClaimCronJob(
	claimRepo repository.RewardClaimRepository,
	client eth.EthClient,
) *ReconcileRewardClaimCronJob {
	return &ReconcileRewardClaimCronJob{claimRepo: claimRepo, client: client}
}

func (job *ReconcileRewardClaimCronJob) Do(ctx context.Context) {
	claims, err := job.claimRepo.GetListByStatus(ctx, entity.RewardClaimPending, reconcileBatchSize)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get pending reward claims: %v", err)
		return
	}

	for _, claim := range claims {
		if !claim.TxHash.Valid {
			continue
		}

		receipt, err := job.client.TransactionReceipt(ctx, common.HexToHash(claim.TxHash.String))
		if errors.Is(err, ethereum.NotFound) {
			continue
		}

		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot get receipt of %s: %v", claim.TxHash.String, err)
			continue
		}

		status := entity.RewardClaimConfirmed
		if receipt.Status != ethtypes.ReceiptStatusSuccessful {
			status = entity.RewardClaimFailed
		}

		var blockNumber uint64
		if receipt.BlockNumber != nil {
			blockNumber = receipt.BlockNumber.Uint64()
		}

		err = job.claimRepo.UpdateReceiptByID(ctx, claim.ID, status, blockNumber, receipt.GasUsed)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot update reward claim %s: %v", claim.ID, err)
			continue
		}

		xcontext.Logger(ctx).Infof("Reward claim %s is %s at block %d", claim.ID, status, blockNumber)
	}
}

func (job *ReconcileRewardClaimCronJob) RunNow() bool {
	return true
}

func (job *ReconcileRewardClaimCronJob) Next() time.Time {
	return time.Now().Add(time.Minute)
}
