package replayguard

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync"
)

type memoryGuard struct {
	entries *xsync.MapOf[string, time.Time]
}

// NewMemoryGuard keeps the entries in process memory. Only suitable for a single instance.
func NewMemoryGuard() *memoryGuard {
	return &memoryGuard{entries: xsync.NewMapOf[time.Time]()}
}

func (g *memoryGuard) Reserve(_ context.Context, recipient, nonce string) (bool, error) {
	_, loaded := g.entries.LoadOrStore(Key(recipient, nonce), time.Now())
	return !loaded, nil
}

func (g *memoryGuard) Clear(context.Context) error {
	g.entries.Range(func(key string, _ time.Time) bool {
		g.entries.Delete(key)
		return true
	})

	return nil
}

func (g *memoryGuard) Len() int {
	n := 0
	g.entries.Range(func(string, time.Time) bool {
		n++
		return true
	})

	return n
}
