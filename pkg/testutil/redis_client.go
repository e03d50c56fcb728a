package testutil

import (
	"context"
	"time"
)

type MockRedisClient struct {
	DelFunc   func(ctx context.Context, key ...string) error
	ScanFunc  func(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error)
	SetNXFunc func(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

func (m *MockRedisClient) Del(ctx context.Context, key ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, key...)
	}

	return nil
}

func (m *MockRedisClient) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	if m.ScanFunc != nil {
		return m.ScanFunc(ctx, cursor, pattern, count)
	}

	return nil, 0, nil
}

func (m *MockRedisClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, ttl)
	}

	return true, nil
}
