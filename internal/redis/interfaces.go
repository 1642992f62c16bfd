package redis

import (
	"context"
	"time"

	"paygate/internal/domain"
)

// LockStoreInterface defines the interface for per-payment distributed locking.
type LockStoreInterface interface {
	AcquirePaymentLock(ctx context.Context, provider domain.Provider, transactionID string, ttl time.Duration) (bool, error)
	ReleasePaymentLock(ctx context.Context, provider domain.Provider, transactionID string) error
}

// CacheStoreInterface defines the interface for payment view caching.
type CacheStoreInterface interface {
	GetPayment(ctx context.Context, provider domain.Provider, transactionID string) (*domain.Payment, error)
	SetPayment(ctx context.Context, payment *domain.Payment) error
	InvalidatePayment(ctx context.Context, provider domain.Provider, transactionID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
