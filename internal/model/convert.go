package model

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/questx-lab/rewardissuer/internal/entity"
)

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}

	return &v.Int64
}

func ConvertRewardClaim(claim *entity.RewardClaim) RewardClaim {
	return RewardClaim{
		ID:             claim.ID,
		Recipient:      claim.Recipient,
		Nonce:          claim.Nonce,
		TaskID:         claim.TaskID,
		IsWelcomeBonus: claim.IsWelcomeBonus,
		Amount:         json.Number(claim.Amount),
		Status:         string(claim.Status),
		TxHash:         claim.TxHash.String,
		TxNonce:        nullInt64(claim.TxNonce),
		BlockNumber:    nullInt64(claim.BlockNumber),
		GasUsed:        nullInt64(claim.GasUsed),
		Error:          claim.Error,
		CreatedAt:      claim.CreatedAt.Format(time.RFC3339),
	}
}
