package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"paygate/internal/domain"
)

// LockStore handles distributed per-payment locking in Redis. Confirm,
// refund and callback processing for one (provider, transactionID) pair must
// not interleave; operations on distinct payments never contend.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquirePaymentLock attempts to acquire the lock for the given payment.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquirePaymentLock(ctx context.Context, provider domain.Provider, transactionID string, ttl time.Duration) (bool, error) {
	key := paymentLockKey(provider, transactionID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleasePaymentLock releases the lock for the given payment.
func (s *LockStore) ReleasePaymentLock(ctx context.Context, provider domain.Provider, transactionID string) error {
	return s.client.Del(ctx, paymentLockKey(provider, transactionID)).Err()
}

func paymentLockKey(provider domain.Provider, transactionID string) string {
	return fmt.Sprintf("lock:payment:%s:%s", provider, transactionID)
}
