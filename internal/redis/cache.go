package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"paygate/internal/domain"
)

// CacheStore caches payment records in Redis for the read-only status path.
// Entries are invalidated on every status-changing operation, so a short TTL
// only bounds staleness after a missed invalidation.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// PaymentCacheTTL bounds how long a cached payment view may live.
const PaymentCacheTTL = 30 * time.Second

// GetPayment retrieves a payment from cache. A cache miss returns (nil, nil).
func (s *CacheStore) GetPayment(ctx context.Context, provider domain.Provider, transactionID string) (*domain.Payment, error) {
	data, err := s.client.Get(ctx, paymentCacheKey(provider, transactionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var payment domain.Payment
	if err := json.Unmarshal(data, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// SetPayment stores a payment in cache.
func (s *CacheStore) SetPayment(ctx context.Context, payment *domain.Payment) error {
	data, err := json.Marshal(payment)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, paymentCacheKey(payment.Provider, payment.TransactionID), data, PaymentCacheTTL).Err()
}

// InvalidatePayment removes a payment from cache.
func (s *CacheStore) InvalidatePayment(ctx context.Context, provider domain.Provider, transactionID string) error {
	return s.client.Del(ctx, paymentCacheKey(provider, transactionID)).Err()
}

func paymentCacheKey(provider domain.Provider, transactionID string) string {
	return fmt.Sprintf("cache:payment:%s:%s", provider, transactionID)
}
