package reward

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/questx-lab/rewardissuer/internal/domain/blockchain/eth"
	"github.com/questx-lab/rewardissuer/internal/domain/replayguard"
	"github.com/questx-lab/rewardissuer/internal/entity"
	"github.com/questx-lab/rewardissuer/internal/repository"
	"github.com/questx-lab/rewardissuer/mocks"
	"github.com/questx-lab/rewardissuer/pkg/errorx"
	"github.com/questx-lab/rewardissuer/pkg/ethutil"
	"github.com/questx-lab/rewardissuer/pkg/testutil"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Unix(1_700_000_000, 0)

	testPolicy = &Policy{
		Version: "test",
		Tasks: map[string]decimal.Decimal{
			"followX":     decimal.NewFromInt(100),
			"joinDiscord": decimal.NewFromInt(50),
		},
	}
)

type issuerSuite struct {
	issuer    *Issuer
	client    *mocks.EthClient
	guard     replayguard.Guard
	claimRepo repository.RewardClaimRepository
	publisher *testutil.MockPublisher
}

func newIssuerSuite(policy *Policy) *issuerSuite {
	s := &issuerSuite{
		client:    &mocks.EthClient{},
		guard:     replayguard.NewMemoryGuard(),
		claimRepo: repository.NewRewardClaimRepository(),
		publisher: &testutil.MockPublisher{},
	}

	s.issuer = NewIssuer(
		eth.NewSender(s.client, 1337),
		ethutil.NewPersonalSignVerifier(),
		s.guard,
		policy,
		s.claimRepo,
		s.publisher,
	)
	s.issuer.now = func() time.Time { return testNow }

	return s
}

// mockChain answers like a node where the transfer gets mined at the given poll attempt.
func (s *issuerSuite) mockChain(minedAt int, status uint64) {
	s.client.On("BlockNumber", mock.Anything).Return(uint64(100), nil)
	s.client.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(5), nil)
	s.client.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(5000000000), nil)
	s.client.On("SendTransaction", mock.Anything, mock.Anything).Return(nil)

	if minedAt > 1 {
		s.client.On("TransactionReceipt", mock.Anything, mock.Anything).
			Return(nil, ethereum.NotFound).Times(minedAt - 1)
	}
	if minedAt > 0 {
		s.client.On("TransactionReceipt", mock.Anything, mock.Anything).
			Return(&ethtypes.Receipt{Status: status, BlockNumber: big.NewInt(100), GasUsed: 52000}, nil)
	} else {
		s.client.On("TransactionReceipt", mock.Anything, mock.Anything).Return(nil, ethereum.NotFound)
	}
}

func newClaim(t *testing.T, key, taskID, nonce string, amount int64) *Claim {
	recipient := testutil.AddressOf(t, key)
	expiry := testNow.Add(5 * time.Minute).Unix()
	message := testutil.ClaimMessage(taskID, recipient, nonce, expiry)

	return &Claim{
		TaskID:    taskID,
		Recipient: recipient,
		Message:   message,
		Signature: testutil.PersonalSign(t, key, message),
		Nonce:     nonce,
		Expiry:    expiry,
		Amount:    decimal.NewNullDecimal(decimal.NewFromInt(amount)),
	}
}

func requireCode(t *testing.T, err error, code errorx.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, errorx.CodeOf(err), err.Error())
}

func Test_Issuer_IssueReward_Mined(t *testing.T) {
	ctx := testutil.NewMockContext()
	s := newIssuerSuite(testPolicy)
	s.mockChain(2, ethtypes.ReceiptStatusSuccessful)

	claim := newClaim(t, testutil.User1PrivateKey, "followX", "n1", 100)
	result, err := s.issuer.IssueReward(ctx, claim)
	require.NoError(t, err)

	require.Equal(t, TransferConfirmed, result.Status)
	require.Equal(t, uint64(100), result.BlockNumber)
	require.Equal(t, uint64(52000), result.GasUsed)
	require.True(t, result.Amount.Equal(decimal.NewFromInt(100)))
	require.Equal(t, claim.Recipient, result.Recipient)
	require.Equal(t, testutil.AdminAddress(), result.Sender)
	require.Equal(t, "https://explorer.test/tx/"+result.TxHash, result.Explorer)
	s.client.AssertNumberOfCalls(t, "TransactionReceipt", 2)

	txs := s.client.SentTransactions()
	require.Len(t, txs, 1)
	tx := txs[0]
	require.Equal(t, result.TxHash, tx.Hash().Hex())
	require.Equal(t, uint64(5), tx.Nonce())
	require.Equal(t, big.NewInt(6000000000), tx.GasPrice())
	require.Equal(t, uint64(100000), tx.Gas())
	require.Equal(t, ethcommon.HexToAddress(testutil.TokenAddress), *tx.To())

	recipient, amount, err := ethutil.DecodeTransfer(tx.Data())
	require.NoError(t, err)
	require.Equal(t, ethcommon.HexToAddress(claim.Recipient), recipient)
	expectedAmount, _ := new(big.Int).SetString("100000000000000000000", 10)
	require.Equal(t, expectedAmount, amount)

	record, err := s.claimRepo.GetByTxHash(ctx, result.TxHash)
	require.NoError(t, err)
	require.Equal(t, entity.RewardClaimConfirmed, record.Status)
	require.Equal(t, strings.ToLower(claim.Recipient), record.Recipient)
	require.Equal(t, int64(5), record.TxNonce.Int64)
	require.Equal(t, int64(100), record.BlockNumber.Int64)
	require.Equal(t, "100", record.Amount)

	packs := s.publisher.Published("reward_claim")
	require.Len(t, packs, 1)
	var event Event
	require.NoError(t, json.Unmarshal(packs[0].Msg, &event))
	require.Equal(t, string(entity.RewardClaimConfirmed), event.Status)
	require.Equal(t, result.TxHash, event.TxHash)
}

func Test_Issuer_IssueReward_Replay(t *testing.T) {
	ctx := testutil.NewMockContext()
	s := newIssuerSuite(testPolicy)
	s.mockChain(1, ethtypes.ReceiptStatusSuccessful)

	claim := newClaim(t, testutil.User1PrivateKey, "followX", "n1", 100)
	_, err := s.issuer.IssueReward(ctx, claim)
	require.NoError(t, err)

	calls := s.client.Calls
	_, err = s.issuer.IssueReward(ctx, claim)
	requireCode(t, err, errorx.DuplicateNonce)
	require.Equal(t, 409, errorx.DuplicateNonce.HTTPStatus())

	// The replay never reached the chain.
	require.Len(t, s.client.Calls, len(calls))
	s.client.AssertNumberOfCalls(t, "SendTransaction", 1)
}

func Test_Issuer_IssueReward_DuplicateBeforeRPC(t *testing.T) {
	ctx := testutil.NewMockContext()
	s := newIssuerSuite(testPolicy)

	claim := newClaim(t, testutil.User1PrivateKey, "followX", "n1", 100)
	reserved, err := s.guard.Reserve(ctx, claim.Recipient, claim.Nonce)
	require.NoError(t, err)
	require.True(t, reserved)

	_, err = s.issuer.IssueReward(ctx, claim)
	requireCode(t, err, errorx.DuplicateNonce)
	s.client.AssertNotCalled(t, "BlockNumber", mock.Anything)
	s.client.AssertNotCalled(t, "PendingNonceAt", mock.Anything, mock.Anything)
	s.client.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func Test_Issuer_IssueReward_Pending(t *testing.T) {
	ctx := testutil.NewMockContext()
	s := newIssuerSuite(testPolicy)
	s.mockChain(0, 0)

	claim := newClaim(t, testutil.User1PrivateKey, "followX", "n1", 100)
	result, err := s.issuer.IssueReward(ctx, claim)
	require.NoError(t, err)
	require.Equal(t, TransferPending, result.Status)
	require.NotEmpty(t, result.TxHash)
	require.NotEmpty(t, result.Explorer)
	s.client.AssertNumberOfCalls(t, "TransactionReceipt", 30)

	record, err := s.claimRepo.GetByID(ctx, result.ClaimID)
	require.NoError(t, err)
	require.Equal(t, entity.RewardClaimPending, record.Status)
	require.Equal(t, result.TxHash, record.TxHash.String)

	// The node still reports nonce 5, so the unmined transaction is not built upon.
	_, err = s.issuer.IssueReward(ctx, newClaim(t, testutil.User1PrivateKey, "followX", "n2", 100))
	require.NoError(t, err)
	txs := s.client.SentTransactions()
	require.Len(t, txs, 2)
	require.Equal(t, uint64(5), txs[0].Nonce())
	require.Equal(t, uint64(5), txs[1].Nonce())
}

func Test_Issuer_IssueReward_OnChainFailure(t *testing.T) {
	ctx := testutil.NewMockContext()
	s := newIssuerSuite(testPolicy)
	s.mockChain(1, ethtypes.ReceiptStatusFailed)

	claim := newClaim(t, testutil.User1PrivateKey, "joinDiscord", "n1", 50)
	_, err := s.issuer.IssueReward(ctx, claim)
	requireCode(t, err, errorx.OnChainFailure)

	var errx errorx.Error
	require.True(t, errors.As(err, &errx))
	require.NotEmpty(t, errx.TxHash)
	require.Equal(t, "https://explorer.test/tx/"+errx.TxHash, errx.Explorer)

	record, err := s.claimRepo.GetByTxHash(ctx, errx.TxHash)
	require.NoError(t, err)
	require.Equal(t, entity.RewardClaimFailed, record.Status)
}

func Test_Issuer_IssueReward_RpcUnavailable(t *testing.T) {
	ctx := testutil.NewMockContext()
	s := newIssuerSuite(testPolicy)
	s.client.On("BlockNumber", mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

	claim := newClaim(t, testutil.User1PrivateKey, "followX", "n1", 100)
	_, err := s.issuer.IssueReward(ctx, claim)
	requireCode(t, err, errorx.RpcUnavailable)

	var errx errorx.Error
	require.True(t, errors.As(err, &errx))
	require.Contains(t, errx.Details, "connection refused")

	// The nonce is burned even though nothing was sent.
	_, err = s.issuer.IssueReward(ctx, claim)
	requireCode(t, err, errorx.DuplicateNonce)

	records, err := s.claimRepo.GetListByStatus(ctx, entity.RewardClaimRPCError, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Contains(t, records[0].Error, "connection refused")
}

func Test_Issuer_IssueReward_RpcError(t *testing.T) {
	ctx := testutil.NewMockContext()
	s := newIssuerSuite(testPolicy)
	s.client.On("BlockNumber", mock.Anything).Return(uint64(100), nil)
	s.client.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(5), nil)
	s.client.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(5000000000), nil)
	s.client.On("SendTransaction", mock.Anything, mock.Anything).Return(errors.New("insufficient funds for gas"))

	claim := newClaim(t, testutil.User1PrivateKey, "followX", "n1", 100)
	_, err := s.issuer.IssueReward(ctx, claim)
	requireCode(t, err, errorx.RpcError)
	s.client.AssertNotCalled(t, "TransactionReceipt", mock.Anything, mock.Anything)
}

func Test_Issuer_IssueReward_Validation(t *testing.T) {
	adminKey, err := ethutil.ParsePrivateKey(testutil.AdminPrivateKey)
	require.NoError(t, err)
	adminAddress := ethutil.PrivateKeyToAddress(adminKey).Hex()

	testcases := []struct {
		name   string
		modify func(*Claim)
		want   errorx.Code
	}{
		{
			name:   "missing recipient",
			modify: func(c *Claim) { c.Recipient = "" },
			want:   errorx.MalformedRequest,
		},
		{
			name:   "missing signature",
			modify: func(c *Claim) { c.Signature = "" },
			want:   errorx.MalformedRequest,
		},
		{
			name:   "missing amount",
			modify: func(c *Claim) { c.Amount = decimal.NullDecimal{} },
			want:   errorx.MalformedRequest,
		},
		{
			name:   "missing nonce",
			modify: func(c *Claim) { c.Nonce = "" },
			want:   errorx.MalformedRequest,
		},
		{
			name:   "negative amount",
			modify: func(c *Claim) { c.Amount = decimal.NewNullDecimal(decimal.NewFromInt(-1)) },
			want:   errorx.MalformedRequest,
		},
		{
			name: "exponent amount with bogus signature",
			modify: func(c *Claim) {
				c.Amount = decimal.NewNullDecimal(decimal.RequireFromString("1e20000000"))
				c.Signature = "0xzz"
			},
			want: errorx.MalformedRequest,
		},
		{
			name:   "amount above uint256",
			modify: func(c *Claim) { c.Amount = decimal.NewNullDecimal(decimal.RequireFromString("1e60")) },
			want:   errorx.MalformedRequest,
		},
		{
			name:   "amount finer than token decimals",
			modify: func(c *Claim) { c.Amount = decimal.NewNullDecimal(decimal.RequireFromString("0.0000000000000000001")) },
			want:   errorx.MalformedRequest,
		},
		{
			name:   "admin recipient",
			modify: func(c *Claim) { c.Recipient = strings.ToLower(adminAddress) },
			want:   errorx.InvalidRecipient,
		},
		{
			name:   "malformed address",
			modify: func(c *Claim) { c.Recipient = "0x1234" },
			want:   errorx.InvalidAddress,
		},
		{
			name:   "signature of another wallet",
			modify: func(c *Claim) { c.Signature = testutil.PersonalSign(t, testutil.User2PrivateKey, c.Message) },
			want:   errorx.InvalidSignature,
		},
		{
			name:   "undecodable signature",
			modify: func(c *Claim) { c.Signature = "0xzz" },
			want:   errorx.InvalidSignature,
		},
		{
			name:   "tampered message",
			modify: func(c *Claim) { c.Message += "!" },
			want:   errorx.InvalidSignature,
		},
		{
			name: "message without nonce",
			modify: func(c *Claim) {
				c.Message = "Claim reward for " + c.Recipient
				c.Signature = testutil.PersonalSign(t, testutil.User1PrivateKey, c.Message)
			},
			want: errorx.InvalidSignature,
		},
		{
			name:   "nonce only matching other digits of the message",
			modify: func(c *Claim) { c.Nonce = "1" },
			want:   errorx.InvalidSignature,
		},
		{
			name: "nonce without label",
			modify: func(c *Claim) {
				c.Message = fmt.Sprintf("Claim reward %s for %s %s %d", c.TaskID, c.Recipient, c.Nonce, c.Expiry)
				c.Signature = testutil.PersonalSign(t, testutil.User1PrivateKey, c.Message)
			},
			want: errorx.InvalidSignature,
		},
		{
			name: "expired",
			modify: func(c *Claim) {
				c.Expiry = testNow.Add(-time.Second).Unix()
				c.Message = testutil.ClaimMessage(c.TaskID, c.Recipient, c.Nonce, c.Expiry)
				c.Signature = testutil.PersonalSign(t, testutil.User1PrivateKey, c.Message)
			},
			want: errorx.RequestExpired,
		},
		{
			name:   "mismatched task reward",
			modify: func(c *Claim) { c.Amount = decimal.NewNullDecimal(decimal.NewFromInt(1000)) },
			want:   errorx.InvalidTaskReward,
		},
		{
			name: "task not in policy",
			modify: func(c *Claim) {
				c.TaskID = "mintNFT"
				c.Message = testutil.ClaimMessage(c.TaskID, c.Recipient, c.Nonce, c.Expiry)
				c.Signature = testutil.PersonalSign(t, testutil.User1PrivateKey, c.Message)
			},
			want: errorx.InvalidTaskReward,
		},
	}

	for _, tt := range testcases {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutil.NewMockContext()
			s := newIssuerSuite(testPolicy)

			claim := newClaim(t, testutil.User1PrivateKey, "followX", "n1", 100)
			tt.modify(claim)

			_, err := s.issuer.IssueReward(ctx, claim)
			requireCode(t, err, tt.want)
			require.Empty(t, s.client.Calls)

			records, err := s.claimRepo.GetListByStatus(ctx, entity.RewardClaimAccepted, 10)
			require.NoError(t, err)
			require.Empty(t, records)

			if tt.want != errorx.InvalidTaskReward {
				// Claims rejected before the replay check leave no guard entry.
				original := newClaim(t, testutil.User1PrivateKey, "followX", "n1", 100)
				reserved, err := s.guard.Reserve(ctx, original.Recipient, original.Nonce)
				require.NoError(t, err)
				require.True(t, reserved)
			}
		})
	}
}

func Test_Issuer_IssueReward_ConfigError(t *testing.T) {
	cfg := testutil.MockConfigs()
	cfg.Eth.AdminPrivateKey = ""
	ctx := testutil.NewMockContextWithConfigs(cfg)
	s := newIssuerSuite(testPolicy)

	_, err := s.issuer.IssueReward(ctx, &Claim{})
	requireCode(t, err, errorx.ConfigError)

	cfg = testutil.MockConfigs()
	cfg.Eth.TokenAddress = "not an address"
	ctx = xcontext.WithConfigs(ctx, cfg)

	_, err = s.issuer.IssueReward(ctx, newClaim(t, testutil.User1PrivateKey, "followX", "n1", 100))
	requireCode(t, err, errorx.ConfigError)
	require.Empty(t, s.client.Calls)
}

func Test_Issuer_IssueReward_WelcomeBonus(t *testing.T) {
	ctx := testutil.NewMockContext()

	// The amount of the client is accepted when the policy has no fixed bonus.
	s := newIssuerSuite(testPolicy)
	s.mockChain(1, ethtypes.ReceiptStatusSuccessful)

	claim := newClaim(t, testutil.User1PrivateKey, "", "welcome", 7)
	claim.IsWelcomeBonus = true
	result, err := s.issuer.IssueReward(ctx, claim)
	require.NoError(t, err)
	require.True(t, result.Amount.Equal(decimal.NewFromInt(7)))

	// A fixed bonus must be matched exactly.
	fixed := &Policy{Version: "test", WelcomeBonus: decimal.NewFromInt(10), Tasks: testPolicy.Tasks}
	s = newIssuerSuite(fixed)

	claim = newClaim(t, testutil.User1PrivateKey, "", "welcome", 7)
	claim.IsWelcomeBonus = true
	_, err = s.issuer.IssueReward(ctx, claim)
	requireCode(t, err, errorx.InvalidTaskReward)
}

func Test_Issuer_IssueReward_ConcurrentDuplicates(t *testing.T) {
	ctx := testutil.NewMockContext()
	s := newIssuerSuite(testPolicy)
	s.mockChain(1, ethtypes.ReceiptStatusSuccessful)

	claim := newClaim(t, testutil.User1PrivateKey, "followX", "n1", 100)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.issuer.IssueReward(ctx, claim)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			requireCode(t, err, errorx.DuplicateNonce)
		}
	}
	require.Equal(t, 1, succeeded)
	s.client.AssertNumberOfCalls(t, "SendTransaction", 1)
}

func Test_Issuer_IssueReward_ConcurrentNonces(t *testing.T) {
	ctx := testutil.NewMockContext()
	s := newIssuerSuite(testPolicy)
	s.mockChain(1, ethtypes.ReceiptStatusSuccessful)

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		claim := newClaim(t, testutil.User1PrivateKey, "followX", "n"+string(rune('a'+i)), 100)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.issuer.IssueReward(ctx, claim)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	seen := map[uint64]bool{}
	for _, tx := range s.client.SentTransactions() {
		require.False(t, seen[tx.Nonce()], "nonce %d reused", tx.Nonce())
		seen[tx.Nonce()] = true
	}
	require.Len(t, seen, n)
}
