package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/questx-lab/rewardissuer/internal/domain/blockchain/eth"
	"github.com/questx-lab/rewardissuer/internal/domain/reward"
	"github.com/questx-lab/rewardissuer/internal/entity"
	"github.com/questx-lab/rewardissuer/internal/model"
	"github.com/questx-lab/rewardissuer/internal/repository"
	"github.com/questx-lab/rewardissuer/pkg/enum"
	"github.com/questx-lab/rewardissuer/pkg/errorx"
	"github.com/questx-lab/rewardissuer/pkg/ethutil"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
	"gorm.io/gorm"
)

const (
	defaultClaimListLimit = 50
	maxClaimListLimit     = 500

	pendingMessage = "Transaction was sent but is not mined yet, check the explorer for its status"
)

type RewardDomain interface {
	Claim(context.Context, *model.ClaimRewardRequest) (*model.ClaimRewardResponse, error)
	Health(context.Context, *model.HealthRequest) (*model.HealthResponse, error)
	GetRewardClaim(context.Context, *model.GetRewardClaimRequest) (*model.GetRewardClaimResponse, error)
	GetRewardClaims(context.Context, *model.GetRewardClaimsRequest) (*model.GetRewardClaimsResponse, error)
}

type rewardDomain struct {
	issuer    *reward.Issuer
	ethClient eth.EthClient
	claimRepo repository.RewardClaimRepository
}

func NewRewardDomain(
	issuer *reward.Issuer,
	ethClient eth.EthClient,
	claimRepo repository.RewardClaimRepository,
) *rewardDomain {
	return &rewardDomain{
		issuer:    issuer,
		ethClient: ethClient,
		claimRepo: claimRepo,
	}
}

func (d *rewardDomain) Claim(
	ctx context.Context, req *model.ClaimRewardRequest,
) (*model.ClaimRewardResponse, error) {
	result, err := d.issuer.IssueReward(ctx, &reward.Claim{
		TaskID:         req.TaskID,
		Recipient:      req.RecipientAddress,
		Message:        req.Message,
		Signature:      req.Signature,
		Nonce:          req.Nonce,
		Expiry:         req.Expiry,
		Amount:         req.RewardAmount,
		IsWelcomeBonus: req.IsWelcomeBonus,
	})
	if err != nil {
		return nil, err
	}

	resp := &model.ClaimRewardResponse{
		Success:   true,
		TxHash:    result.TxHash,
		Amount:    json.Number(result.Amount.String()),
		Recipient: result.Recipient,
		Explorer:  result.Explorer,
	}

	if result.Status == reward.TransferPending {
		resp.Status = string(reward.TransferPending)
		resp.Message = pendingMessage
		return resp, nil
	}

	resp.BlockNumber = result.BlockNumber
	resp.GasUsed = result.GasUsed
	resp.Sender = result.Sender
	resp.Timestamp = result.Timestamp.UTC().Format(time.RFC3339)

	return resp, nil
}

func (d *rewardDomain) Health(ctx context.Context, _ *model.HealthRequest) (*model.HealthResponse, error) {
	cfg := xcontext.Configs(ctx).Eth

	key, err := ethutil.ParsePrivateKey(cfg.AdminPrivateKey)
	if err != nil {
		return nil, errorx.New(errorx.ConfigError, "Server is not configured to issue rewards")
	}

	blockNumber, err := d.ethClient.BlockNumber(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Health check cannot reach rpc: %v", err)
		return nil, errorx.New(errorx.Unavailable, "Blockchain rpc is unavailable").WithDetails(err.Error())
	}

	return &model.HealthResponse{
		BlockNumber:  blockNumber,
		AdminAddress: ethutil.PrivateKeyToAddress(key).Hex(),
		TokenAddress: cfg.TokenAddress,
		Network:      cfg.Chain,
		ChainID:      cfg.ChainID,
	}, nil
}

func (d *rewardDomain) GetRewardClaim(
	ctx context.Context, req *model.GetRewardClaimRequest,
) (*model.GetRewardClaimResponse, error) {
	if req.TxHash == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow empty tx hash")
	}

	claim, err := d.claimRepo.GetByTxHash(ctx, req.TxHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found reward claim")
		}

		xcontext.Logger(ctx).Errorf("Cannot get reward claim: %v", err)
		return nil, errorx.Unknown
	}

	resp := model.GetRewardClaimResponse(model.ConvertRewardClaim(claim))
	return &resp, nil
}

func (d *rewardDomain) GetRewardClaims(
	ctx context.Context, req *model.GetRewardClaimsRequest,
) (*model.GetRewardClaimsResponse, error) {
	status, err := enum.ToEnum[entity.RewardClaimStatus](req.Status)
	if err != nil {
		xcontext.Logger(ctx).Debugf("Invalid reward claim status: %v", err)
		return nil, errorx.New(errorx.BadRequest, "Invalid status %q", req.Status)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultClaimListLimit
	}
	if limit > maxClaimListLimit {
		limit = maxClaimListLimit
	}

	claims, err := d.claimRepo.GetListByStatus(ctx, status, limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get reward claims: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetRewardClaimsResponse{Claims: []model.RewardClaim{}}
	for i := range claims {
		resp.Claims = append(resp.Claims, model.ConvertRewardClaim(&claims[i]))
	}

	return resp, nil
}
