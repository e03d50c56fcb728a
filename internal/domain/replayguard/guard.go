// Package replayguard throttles duplicate claim submissions. An entry is keyed by the recipient
// address and the client chosen nonce and lives until the next periodic clear.
package replayguard

import (
	"context"
	"strings"
)

type Guard interface {
	// Reserve inserts the (recipient, nonce) entry. It returns false without modifying anything if
	// the entry already exists. The check and the insert are atomic.
	Reserve(ctx context.Context, recipient, nonce string) (bool, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// Key is case-insensitive on the address part since the same account can be written in
// checksummed or lower case form.
func Key(recipient, nonce string) string {
	return strings.ToLower(strings.TrimSpace(recipient)) + ":" + nonce
}
