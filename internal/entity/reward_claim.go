package entity

import (
	"database/sql"

	"github.com/questx-lab/rewardissuer/pkg/enum"
)

type RewardClaimStatus string

var (
	// RewardClaimAccepted means the claim passed every validation and no transaction exists yet.
	RewardClaimAccepted = enum.New(RewardClaimStatus("accepted"))
	// RewardClaimBroadcasted means the signed transaction was sent, TxHash is set.
	RewardClaimBroadcasted = enum.New(RewardClaimStatus("broadcasted"))
	RewardClaimConfirmed   = enum.New(RewardClaimStatus("confirmed"))
	// RewardClaimPending means no receipt arrived before polling gave up.
	RewardClaimPending = enum.New(RewardClaimStatus("pending"))
	// RewardClaimFailed means the transaction was mined but reverted, or never broadcast.
	RewardClaimFailed = enum.New(RewardClaimStatus("failed"))
	// RewardClaimRPCError means the claim was consumed but the node could not be used.
	RewardClaimRPCError = enum.New(RewardClaimStatus("rpc_error"))
)

type RewardClaim struct {
	Base

	Recipient      string `gorm:"index:idx_reward_claims_recipient_nonce"`
	Nonce          string `gorm:"index:idx_reward_claims_recipient_nonce"`
	TaskID         string
	IsWelcomeBonus bool
	Amount         string
	Expiry         int64

	Status      RewardClaimStatus `gorm:"index"`
	TxHash      sql.NullString    `gorm:"index"`
	TxNonce     sql.NullInt64
	BlockNumber sql.NullInt64
	GasUsed     sql.NullInt64
	Error       string
}
