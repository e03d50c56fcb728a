package errorx

import (
	"errors"
	"fmt"
)

var Unknown = Error{Code: Internal, Message: "Request failed"}

type Error struct {
	Code    Code
	Message string

	// Details carries the upstream cause of an infrastructure failure.
	Details string

	// TxHash and Explorer are set when a transaction was already broadcast, so the client can
	// reconcile it manually.
	TxHash   string
	Explorer string
}

func New(code Code, format string, a ...any) Error {
	return Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

func (e Error) Error() string {
	return e.Message
}

func (e Error) WithDetails(details string) Error {
	e.Details = details
	return e
}

func (e Error) WithTx(txHash, explorer string) Error {
	e.TxHash = txHash
	e.Explorer = explorer
	return e
}

// CodeOf returns the code of err if it is an Error, otherwise Internal.
func CodeOf(err error) Code {
	var errx Error
	if errors.As(err, &errx) {
		return errx.Code
	}

	return Internal
}
