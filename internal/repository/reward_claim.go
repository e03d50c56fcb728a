package repository

import (
	"context"
	"database/sql"

	"github.com/questx-lab/rewardissuer/internal/entity"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
)

type RewardClaimRepository interface {
	Create(context.Context, *entity.RewardClaim) error
	GetByID(context.Context, string) (*entity.RewardClaim, error)
	GetByTxHash(context.Context, string) (*entity.RewardClaim, error)
	GetListByStatus(ctx context.Context, status entity.RewardClaimStatus, limit int) ([]entity.RewardClaim, error)
	UpdateTransactionByID(ctx context.Context, id, txHash string, txNonce uint64) error
	UpdateStatusByID(ctx context.Context, id string, status entity.RewardClaimStatus, reason string) error
	UpdateReceiptByID(ctx context.Context, id string, status entity.RewardClaimStatus, blockNumber, gasUsed uint64) error
}

type rewardClaimRepository struct{}

func NewRewardClaimRepository() *rewardClaimRepository {
	return &rewardClaimRepository{}
}

func (r *rewardClaimRepository) Create(ctx context.Context, claim *entity.RewardClaim) error {
	return xcontext.DB(ctx).Create(claim).Error
}

func (r *rewardClaimRepository) GetByID(ctx context.Context, id string) (*entity.RewardClaim, error) {
	var result entity.RewardClaim
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *rewardClaimRepository) GetByTxHash(ctx context.Context, txHash string) (*entity.RewardClaim, error) {
	var result entity.RewardClaim
	if err := xcontext.DB(ctx).Take(&result, "tx_hash=?", txHash).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *rewardClaimRepository) GetListByStatus(
	ctx context.Context, status entity.RewardClaimStatus, limit int,
) ([]entity.RewardClaim, error) {
	var result []entity.RewardClaim
	err := xcontext.DB(ctx).
		Where("status=?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *rewardClaimRepository) UpdateTransactionByID(
	ctx context.Context, id, txHash string, txNonce uint64,
) error {
	return xcontext.DB(ctx).
		Model(&entity.RewardClaim{}).
		Where("id=?", id).
		Updates(map[string]any{
			"status":   entity.RewardClaimBroadcasted,
			"tx_hash":  sql.NullString{String: txHash, Valid: true},
			"tx_nonce": sql.NullInt64{Int64: int64(txNonce), Valid: true},
		}).Error
}

func (r *rewardClaimRepository) UpdateStatusByID(
	ctx context.Context, id string, status entity.RewardClaimStatus, reason string,
) error {
	return xcontext.DB(ctx).
		Model(&entity.RewardClaim{}).
		Where("id=?", id).
		Updates(map[string]any{
			"status": status,
			"error":  reason,
		}).Error
}

func (r *rewardClaimRepository) UpdateReceiptByID(
	ctx context.Context, id string, status entity.RewardClaimStatus, blockNumber, gasUsed uint64,
) error {
	return xcontext.DB(ctx).
		Model(&entity.RewardClaim{}).
		Where("id=?", id).
		Updates(map[string]any{
			"status":       status,
			"block_number": sql.NullInt64{Int64: int64(blockNumber), Valid: true},
			"gas_used":     sql.NullInt64{Int64: int64(gasUsed), Valid: true},
		}).Error
}
