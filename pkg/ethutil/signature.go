package ethutil

import (
	"errors"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidSignatureLength = errors.New("signature must be 65 bytes")

// Verifier recovers the account which signed a message.
type Verifier interface {
	RecoverAddress(message, signature string) (common.Address, error)
}

// PersonalSignVerifier implements the EIP-191 personal_sign scheme used by browser wallets
// (eth_sign / personal_sign): keccak256("\x19Ethereum Signed Message:\n" + len + message).
type PersonalSignVerifier struct{}

func NewPersonalSignVerifier() *PersonalSignVerifier {
	return &PersonalSignVerifier{}
}

func (PersonalSignVerifier) RecoverAddress(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, err
	}

	if len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignatureLength
	}

	if sig[crypto.RecoveryIDOffset] == 27 || sig[crypto.RecoveryIDOffset] == 28 {
		sig[crypto.RecoveryIDOffset] -= 27 // Transform yellow paper V from 27/28 to 0/1
	}

	recovered, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(*recovered), nil
}
