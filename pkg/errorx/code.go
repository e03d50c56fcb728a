package errorx

import (
	"fmt"
	"net/http"
)

type Code int

const (
	// Common codes
	BadRequest       Code = 100001
	BadResponse      Code = 100002
	PermissionDenied Code = 100003
	NotFound         Code = 100004
	Unauthenticated  Code = 100005
	AlreadyExists    Code = 100006
	Internal         Code = 100007
	Unavailable      Code = 100008
	NotImplemented   Code = 100009
	TooManyRequests  Code = 100010

	// Reward codes
	ConfigError       Code = 500001
	MalformedRequest  Code = 500002
	InvalidRecipient  Code = 500003
	InvalidAddress    Code = 500004
	InvalidSignature  Code = 500005
	RequestExpired    Code = 500006
	DuplicateNonce    Code = 500007
	InvalidTaskReward Code = 500008
	RpcUnavailable    Code = 500009
	RpcError          Code = 500010
	OnChainFailure    Code = 500011
)

var httpStatuses = map[Code]int{
	BadRequest:       http.StatusBadRequest,
	BadResponse:      http.StatusInternalServerError,
	PermissionDenied: http.StatusForbidden,
	NotFound:         http.StatusNotFound,
	Unauthenticated:  http.StatusUnauthorized,
	AlreadyExists:    http.StatusConflict,
	Internal:         http.StatusInternalServerError,
	Unavailable:      http.StatusServiceUnavailable,
	NotImplemented:   http.StatusNotImplemented,
	TooManyRequests:  http.StatusTooManyRequests,

	ConfigError:       http.StatusInternalServerError,
	MalformedRequest:  http.StatusBadRequest,
	InvalidRecipient:  http.StatusBadRequest,
	InvalidAddress:    http.StatusBadRequest,
	InvalidSignature:  http.StatusUnauthorized,
	RequestExpired:    http.StatusBadRequest,
	DuplicateNonce:    http.StatusConflict,
	InvalidTaskReward: http.StatusBadRequest,
	RpcUnavailable:    http.StatusInternalServerError,
	RpcError:          http.StatusInternalServerError,
	OnChainFailure:    http.StatusInternalServerError,
}

// HTTPStatus returns the status code written to the client for this error code. Unknown codes
// are treated as internal errors.
func (c Code) HTTPStatus() int {
	if status, ok := httpStatuses[c]; ok {
		return status
	}

	return http.StatusInternalServerError
}

var names = map[Code]string{
	BadRequest:        "bad_request",
	BadResponse:       "bad_response",
	PermissionDenied:  "permission_denied",
	NotFound:          "not_found",
	Unauthenticated:   "unauthenticated",
	AlreadyExists:     "already_exists",
	Internal:          "internal",
	Unavailable:       "unavailable",
	NotImplemented:    "not_implemented",
	TooManyRequests:   "too_many_requests",
	ConfigError:       "config_error",
	MalformedRequest:  "malformed_request",
	InvalidRecipient:  "invalid_recipient",
	InvalidAddress:    "invalid_address",
	InvalidSignature:  "invalid_signature",
	RequestExpired:    "request_expired",
	DuplicateNonce:    "duplicate_nonce",
	InvalidTaskReward: "invalid_task_reward",
	RpcUnavailable:    "rpc_unavailable",
	RpcError:          "rpc_error",
	OnChainFailure:    "on_chain_failure",
}

func (c Code) String() string {
	if name, ok := names[c]; ok {
		return name
	}

	return fmt.Sprintf("code_%d", int(c))
}
