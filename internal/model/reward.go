package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type ClaimRewardRequest struct {
	TaskID           string              `json:"taskId"`
	RecipientAddress string              `json:"recipientAddress"`
	Message          string              `json:"message"`
	Signature        string              `json:"signature"`
	Nonce            string              `json:"nonce"`
	Expiry           int64               `json:"expiry"`
	RewardAmount     decimal.NullDecimal `json:"rewardAmount"`
	IsWelcomeBonus   bool                `json:"isWelcomeBonus"`
}

type ClaimRewardResponse struct {
	Success     bool        `json:"success"`
	TxHash      string      `json:"txHash"`
	Status      string      `json:"status,omitempty"`
	BlockNumber uint64      `json:"blockNumber,omitempty"`
	GasUsed     uint64      `json:"gasUsed,omitempty"`
	Amount      json.Number `json:"amount"`
	Recipient   string      `json:"recipient"`
	Sender      string      `json:"sender,omitempty"`
	Explorer    string      `json:"explorer"`
	Message     string      `json:"message,omitempty"`
	Timestamp   string      `json:"timestamp,omitempty"`
}

type HealthRequest struct{}

type HealthResponse struct {
	BlockNumber  uint64 `json:"blockNumber"`
	AdminAddress string `json:"adminAddress"`
	TokenAddress string `json:"tokenAddress"`
	Network      string `json:"network"`
	ChainID      int64  `json:"chainId"`
}

type RewardClaim struct {
	ID             string      `json:"id"`
	Recipient      string      `json:"recipient"`
	Nonce          string      `json:"nonce"`
	TaskID         string      `json:"taskId,omitempty"`
	IsWelcomeBonus bool        `json:"isWelcomeBonus"`
	Amount         json.Number `json:"amount"`
	Status         string      `json:"status"`
	TxHash         string      `json:"txHash,omitempty"`
	TxNonce        *int64      `json:"txNonce,omitempty"`
	BlockNumber    *int64      `json:"blockNumber,omitempty"`
	GasUsed        *int64      `json:"gasUsed,omitempty"`
	Error          string      `json:"error,omitempty"`
	CreatedAt      string      `json:"createdAt"`
}

type GetRewardClaimRequest struct {
	TxHash string `json:"tx_hash" form:"tx_hash"`
}

type GetRewardClaimResponse RewardClaim

type GetRewardClaimsRequest struct {
	Status string `json:"status" form:"status"`
	Limit  int    `json:"limit" form:"limit"`
}

type GetRewardClaimsResponse struct {
	Claims []RewardClaim `json:"claims"`
}
