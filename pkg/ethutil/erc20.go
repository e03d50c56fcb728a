package ethutil

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransferSelector is the first 4 bytes of keccak256("transfer(address,uint256)"), 0xa9059cbb.
var TransferSelector = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]

var (
	ErrInvalidTransferData = errors.New("invalid erc20 transfer data")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrAmountOverflow      = errors.New("amount does not fit in uint256")
)

// EncodeTransfer builds the call data of ERC20 transfer(to, amount): selector followed by the
// recipient and the amount, each left padded to 32 bytes.
func EncodeTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	if amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}

	if amount.BitLen() > 256 {
		return nil, ErrAmountOverflow
	}

	data := make([]byte, 0, 4+32+32)
	data = append(data, TransferSelector...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data, nil
}

// DecodeTransfer is the inverse of EncodeTransfer.
func DecodeTransfer(data []byte) (common.Address, *big.Int, error) {
	if len(data) != 4+32+32 || !bytes.Equal(data[:4], TransferSelector) {
		return common.Address{}, nil, ErrInvalidTransferData
	}

	// The address segment must be zero padded on the left.
	if !bytes.Equal(data[4:16], make([]byte, 12)) {
		return common.Address{}, nil, ErrInvalidTransferData
	}

	to := common.BytesToAddress(data[16:36])
	amount := new(big.Int).SetBytes(data[36:68])
	return to, amount, nil
}
