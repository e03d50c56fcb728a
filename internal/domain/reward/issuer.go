// Package reward pays task rewards. A claim signed by the recipient wallet is validated,
// reserved against replays and paid by an ERC20 transfer from the admin account.
package reward

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/questx-lab/rewardissuer/internal/common"
	"github.com/questx-lab/rewardissuer/internal/domain/blockchain/eth"
	"github.com/questx-lab/rewardissuer/internal/domain/replayguard"
	"github.com/questx-lab/rewardissuer/internal/entity"
	"github.com/questx-lab/rewardissuer/internal/repository"
	"github.com/questx-lab/rewardissuer/pkg/errorx"
	"github.com/questx-lab/rewardissuer/pkg/ethutil"
	"github.com/questx-lab/rewardissuer/pkg/pubsub"
	"github.com/questx-lab/rewardissuer/pkg/retry"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
	"github.com/shopspring/decimal"
)

type Claim struct {
	TaskID         string
	Recipient      string
	Message        string
	Signature      string
	Nonce          string
	Expiry         int64
	Amount         decimal.NullDecimal
	IsWelcomeBonus bool
}

type TransferStatus string

const (
	TransferConfirmed TransferStatus = "confirmed"
	TransferPending   TransferStatus = "pending"
)

type TransferResult struct {
	ClaimID     string
	TxHash      string
	Status      TransferStatus
	BlockNumber uint64
	GasUsed     uint64
	Amount      decimal.Decimal
	Recipient   string
	Sender      string
	Explorer    string
	Timestamp   time.Time
}

// Event is published for every claim which passed validation.
type Event struct {
	ClaimID   string `json:"claim_id"`
	Recipient string `json:"recipient"`
	TaskID    string `json:"task_id,omitempty"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	TxHash    string `json:"tx_hash,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

type Issuer struct {
	sender    *eth.Sender
	verifier  ethutil.Verifier
	guard     replayguard.Guard
	policy    *Policy
	claimRepo repository.RewardClaimRepository
	publisher pubsub.Publisher

	now func() time.Time
}

func NewIssuer(
	sender *eth.Sender,
	verifier ethutil.Verifier,
	guard replayguard.Guard,
	policy *Policy,
	claimRepo repository.RewardClaimRepository,
	publisher pubsub.Publisher,
) *Issuer {
	if publisher == nil {
		publisher = pubsub.NewNopPublisher()
	}

	return &Issuer{
		sender:    sender,
		verifier:  verifier,
		guard:     guard,
		policy:    policy,
		claimRepo: claimRepo,
		publisher: publisher,
		now:       time.Now,
	}
}

// IssueReward validates the claim and pays it. Validation stops at the first failing check and
// has no side effect before the replay guard reservation. Once reserved, the nonce is burned
// whatever happens next.
func (i *Issuer) IssueReward(ctx context.Context, claim *Claim) (*TransferResult, error) {
	cfg := xcontext.Configs(ctx)

	adminKey, err := ethutil.ParsePrivateKey(cfg.Eth.AdminPrivateKey)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Invalid admin private key: %v", err)
		return nil, i.reject(errorx.New(errorx.ConfigError, "Server is not configured to issue rewards"))
	}

	if !ethutil.IsValidAddress(cfg.Eth.TokenAddress) {
		xcontext.Logger(ctx).Errorf("Invalid token contract address: %q", cfg.Eth.TokenAddress)
		return nil, i.reject(errorx.New(errorx.ConfigError, "Server is not configured to issue rewards"))
	}

	if claim.Recipient == "" || claim.Message == "" || claim.Signature == "" || !claim.Amount.Valid {
		return nil, i.reject(errorx.New(errorx.MalformedRequest, "Missing required fields"))
	}

	if claim.Nonce == "" || claim.Expiry <= 0 {
		return nil, i.reject(errorx.New(errorx.MalformedRequest, "Missing nonce or expiry"))
	}

	amount := claim.Amount.Decimal
	if !amount.IsPositive() {
		return nil, i.reject(errorx.New(errorx.MalformedRequest, "Reward amount must be positive"))
	}

	if err := ethutil.CheckAmountRange(amount, cfg.Eth.TokenDecimals); err != nil {
		return nil, i.reject(errorx.New(errorx.MalformedRequest, "Reward amount is out of range"))
	}

	adminAddress := ethutil.PrivateKeyToAddress(adminKey)
	if ethutil.SameAddress(claim.Recipient, adminAddress.Hex()) {
		return nil, i.reject(errorx.New(errorx.InvalidRecipient, "Cannot send reward to the admin address"))
	}

	if !ethutil.IsValidAddress(claim.Recipient) {
		return nil, i.reject(errorx.New(errorx.InvalidAddress, "Invalid recipient address"))
	}

	if !i.verifySignature(ctx, claim) {
		return nil, i.reject(errorx.New(errorx.InvalidSignature, "Invalid signature"))
	}

	if i.now().Unix() > claim.Expiry {
		return nil, i.reject(errorx.New(errorx.RequestExpired, "Request expired"))
	}

	amountInUnit, err := ethutil.ToSmallestUnit(amount, cfg.Eth.TokenDecimals)
	if err != nil {
		return nil, i.reject(errorx.New(errorx.MalformedRequest, "Reward amount has too many decimal places"))
	}

	reserved, err := i.guard.Reserve(ctx, claim.Recipient, claim.Nonce)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot reserve replay guard entry: %v", err)
		return nil, i.reject(errorx.Unknown)
	}

	if !reserved {
		return nil, i.reject(errorx.New(errorx.DuplicateNonce, "Nonce already used"))
	}

	if err := i.checkPolicy(claim); err != nil {
		return nil, i.reject(err)
	}

	record := &entity.RewardClaim{
		Base:           entity.Base{ID: uuid.NewString()},
		Recipient:      strings.ToLower(claim.Recipient),
		Nonce:          claim.Nonce,
		TaskID:         claim.TaskID,
		IsWelcomeBonus: claim.IsWelcomeBonus,
		Amount:         amount.String(),
		Expiry:         claim.Expiry,
		Status:         entity.RewardClaimAccepted,
	}
	if err := i.claimRepo.Create(ctx, record); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create reward claim: %v", err)
		return nil, i.reject(errorx.Unknown)
	}

	if _, err := i.sender.Client().BlockNumber(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Rpc is unavailable: %v", err)
		i.finish(ctx, record, entity.RewardClaimRPCError, err.Error())
		return nil, i.fail(ctx, record, "probe",
			errorx.New(errorx.RpcUnavailable, "Blockchain rpc is unavailable").WithDetails(err.Error()))
	}

	sent, err := i.sender.SendTransfer(ctx, eth.TransferRequest{
		From:                  adminKey,
		Token:                 ethcommon.HexToAddress(cfg.Eth.TokenAddress),
		Recipient:             ethcommon.HexToAddress(claim.Recipient),
		Amount:                amountInUnit,
		GasLimit:              cfg.Eth.GasLimit,
		GasPriceMarginPercent: cfg.Eth.GasPriceMarginPercent,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot send reward transfer: %v", err)
		i.finish(ctx, record, entity.RewardClaimRPCError, err.Error())
		return nil, i.fail(ctx, record, "broadcast",
			errorx.New(errorx.RpcError, "Cannot send reward transaction").WithDetails(err.Error()))
	}

	txHash := sent.Hash.Hex()
	explorer := explorerLink(cfg.Eth.ExplorerURL, txHash)
	record.TxHash.String, record.TxHash.Valid = txHash, true
	if err := i.claimRepo.UpdateTransactionByID(ctx, record.ID, txHash, sent.Nonce); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot record transaction %s of claim %s: %v", txHash, record.ID, err)
	}

	xcontext.Logger(ctx).Infof("Reward transfer %s sent to %s, nonce = %d", txHash, claim.Recipient, sent.Nonce)

	receipt, err := eth.WaitReceipt(ctx, i.sender.Client(), sent.Hash, retry.Policy{
		MaxAttempts: cfg.Reward.ReceiptPollAttempts,
		Interval:    cfg.Reward.ReceiptPollInterval,
	})
	if err != nil {
		xcontext.Logger(ctx).Warnf("Stop waiting receipt of %s: %v", txHash, err)
	}

	result := &TransferResult{
		ClaimID:   record.ID,
		TxHash:    txHash,
		Amount:    amount,
		Recipient: claim.Recipient,
		Sender:    adminAddress.Hex(),
		Explorer:  explorer,
		Timestamp: i.now(),
	}

	if receipt == nil {
		// The transaction may have been dropped, stop building nonces on top of it.
		i.sender.Resync(adminAddress)

		result.Status = TransferPending
		i.finish(ctx, record, entity.RewardClaimPending, "")
		i.succeed(ctx, record, string(TransferPending))
		return result, nil
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		if err := i.claimRepo.UpdateReceiptByID(ctx, record.ID, entity.RewardClaimFailed,
			blockNumberOf(receipt.BlockNumber), receipt.GasUsed); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot record receipt of claim %s: %v", record.ID, err)
		}
		record.Status = entity.RewardClaimFailed

		return nil, i.fail(ctx, record, "on_chain",
			errorx.New(errorx.OnChainFailure, "Transaction failed on chain").WithTx(txHash, explorer))
	}

	result.Status = TransferConfirmed
	result.BlockNumber = blockNumberOf(receipt.BlockNumber)
	result.GasUsed = receipt.GasUsed
	if err := i.claimRepo.UpdateReceiptByID(ctx, record.ID, entity.RewardClaimConfirmed,
		result.BlockNumber, result.GasUsed); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot record receipt of claim %s: %v", record.ID, err)
	}
	record.Status = entity.RewardClaimConfirmed
	i.succeed(ctx, record, string(TransferConfirmed))

	return result, nil
}

// verifySignature reports whether the recipient signed the message and the message names the
// recipient of this claim and carries its nonce and expiry as "Nonce: <nonce>" and
// "Expiry: <unix seconds>" lines.
func (i *Issuer) verifySignature(ctx context.Context, claim *Claim) bool {
	signer, err := i.verifier.RecoverAddress(claim.Message, claim.Signature)
	if err != nil {
		xcontext.Logger(ctx).Debugf("Cannot recover signer: %v", err)
		return false
	}

	if !ethutil.SameAddress(signer.Hex(), claim.Recipient) {
		return false
	}

	if !strings.Contains(strings.ToLower(claim.Message), strings.ToLower(claim.Recipient)) {
		return false
	}

	fields := messageFields(claim.Message)
	return fields["nonce"] == claim.Nonce && fields["expiry"] == strconv.FormatInt(claim.Expiry, 10)
}

// messageFields collects the "Label: value" lines of a signed message, labels lowercased. The
// first occurrence of a label wins.
func messageFields(message string) map[string]string {
	fields := map[string]string{}
	for _, line := range strings.Split(message, "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		label = strings.ToLower(strings.TrimSpace(label))
		if _, exists := fields[label]; !exists {
			fields[label] = strings.TrimSpace(value)
		}
	}

	return fields
}

func (i *Issuer) checkPolicy(claim *Claim) error {
	amount := claim.Amount.Decimal
	if claim.IsWelcomeBonus {
		if !i.policy.WelcomeBonus.IsZero() && !amount.Equal(i.policy.WelcomeBonus) {
			return errorx.New(errorx.InvalidTaskReward, "Invalid welcome bonus amount")
		}

		return nil
	}

	reward, ok := i.policy.RewardOf(claim.TaskID)
	if !ok {
		return errorx.New(errorx.InvalidTaskReward, "Unknown task %q", claim.TaskID)
	}

	if !amount.Equal(reward) {
		return errorx.New(errorx.InvalidTaskReward, "Invalid reward amount for task %q", claim.TaskID)
	}

	return nil
}

func (i *Issuer) reject(err error) error {
	common.PromCounters[common.RewardClaimsTotal].WithLabelValues(errorx.CodeOf(err).String()).Inc()
	return err
}

func (i *Issuer) finish(ctx context.Context, record *entity.RewardClaim, status entity.RewardClaimStatus, reason string) {
	record.Status = status
	if err := i.claimRepo.UpdateStatusByID(ctx, record.ID, status, reason); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot update status of claim %s: %v", record.ID, err)
	}
}

func (i *Issuer) fail(ctx context.Context, record *entity.RewardClaim, stage string, errx errorx.Error) error {
	common.PromCounters[common.RewardTransferFailure].WithLabelValues(stage).Inc()
	common.PromCounters[common.RewardClaimsTotal].WithLabelValues(errx.Code.String()).Inc()
	i.publish(ctx, record, errx.Code.String())
	return errx
}

func (i *Issuer) succeed(ctx context.Context, record *entity.RewardClaim, result string) {
	common.PromCounters[common.RewardClaimsTotal].WithLabelValues(result).Inc()
	i.publish(ctx, record, "")
}

func (i *Issuer) publish(ctx context.Context, record *entity.RewardClaim, errorCode string) {
	event := Event{
		ClaimID:   record.ID,
		Recipient: record.Recipient,
		TaskID:    record.TaskID,
		Amount:    record.Amount,
		Status:    string(record.Status),
		TxHash:    record.TxHash.String,
		ErrorCode: errorCode,
	}

	b, err := json.Marshal(event)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal reward event: %v", err)
		return
	}

	topic := xcontext.Configs(ctx).Kafka.Topic
	if err := i.publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(record.Recipient), Msg: b}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot publish reward event of claim %s: %v", record.ID, err)
	}
}

func explorerLink(explorerURL, txHash string) string {
	return fmt.Sprintf("%s/tx/%s", strings.TrimRight(explorerURL, "/"), txHash)
}

func blockNumberOf(n *big.Int) uint64 {
	if n == nil {
		return 0
	}

	return n.Uint64()
}
