package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"paygate/internal/domain"
	"paygate/internal/provider"
	"paygate/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of repository.PaymentRepository.
// UpdateStatus keeps the conditional-update semantics of the real store so
// concurrency tests exercise the same guard.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
	seq      int64

	// Counters for verification
	CreateCallCount       int32
	UpdateStatusCallCount int32

	// Error injection
	CreateError       error
	UpdateStatusError error
	GetError          error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

// AddPayment adds a payment to the mock repository.
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stamp(payment)
	m.payments[payment.ID] = payment
}

// stamp assigns strictly increasing created/updated timestamps so ordering
// assertions are deterministic. Caller must hold the lock.
func (m *MockPaymentRepository) stamp(payment *domain.Payment) {
	m.seq++
	ts := time.Unix(1700000000, 0).Add(time.Duration(m.seq) * time.Second)
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = ts
	}
	if payment.UpdatedAt.IsZero() {
		payment.UpdatedAt = ts
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.TransactionID == payment.TransactionID && p.Provider == payment.Provider {
			return repository.ErrDuplicateTransaction
		}
	}
	m.stamp(payment)
	m.payments[payment.ID] = payment
	return nil
}

func (m *MockPaymentRepository) GetByTransactionID(ctx context.Context, transactionID string, prov domain.Provider) (*domain.Payment, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.TransactionID == transactionID && p.Provider == prov {
			// Return a copy to avoid mutation issues.
			copy := *p
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockPaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.Payment
	for _, p := range m.payments {
		if p.Reference != reference {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	copy := *latest
	return &copy, nil
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id string, update repository.StatusUpdate) (*domain.Payment, error) {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return nil, m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.ExpectedStatus != "" && payment.Status != update.ExpectedStatus {
		return nil, repository.ErrStaleStatus
	}
	payment.Status = update.Status
	if update.AuthCode != "" {
		payment.AuthCode = update.AuthCode
	}
	payment.ProviderResponse = update.ProviderResponse
	if update.Metadata != nil {
		payment.Metadata = update.Metadata
	}
	m.seq++
	payment.UpdatedAt = time.Unix(1700000000, 0).Add(time.Duration(m.seq) * time.Second)
	copy := *payment
	return &copy, nil
}

func (m *MockPaymentRepository) ListByStatus(ctx context.Context, status domain.PaymentStatus, limit int) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Payment
	for _, p := range m.payments {
		if p.Status == status {
			copy := *p
			result = append(result, &copy)
		}
	}
	sortNewestFirst(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockPaymentRepository) List(ctx context.Context, limit int) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Payment
	for _, p := range m.payments {
		copy := *p
		result = append(result, &copy)
	}
	sortNewestFirst(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockPaymentRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Payment
	for _, p := range m.payments {
		if p.Status == domain.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			copy := *p
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockPaymentRepository) Stats(ctx context.Context) (*repository.PaymentStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &repository.PaymentStats{}
	for _, p := range m.payments {
		stats.TotalCount++
		switch p.Status {
		case domain.PaymentStatusCaptured:
			stats.CapturedCount++
			stats.TotalAmount += p.Amount
		case domain.PaymentStatusPending:
			stats.PendingCount++
		}
	}
	return stats, nil
}

// GetPayment returns the payment by ID (for test assertions).
func (m *MockPaymentRepository) GetPayment(id string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payments[id]
}

// GetPaymentByTransactionID returns the payment for assertions.
func (m *MockPaymentRepository) GetPaymentByTransactionID(transactionID string, prov domain.Provider) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.TransactionID == transactionID && p.Provider == prov {
			return p
		}
	}
	return nil
}

// CountPayments returns the number of payments.
func (m *MockPaymentRepository) CountPayments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

func sortNewestFirst(payments []*domain.Payment) {
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
}

// ──────────────────────────────────────────────
// MOCK PROVIDER ADAPTER
// ──────────────────────────────────────────────

// MockAdapter is a configurable provider.Adapter.
type MockAdapter struct {
	mu           sync.Mutex
	ProviderName domain.Provider

	// Configured results; nil falls back to a success default.
	InitializeResult *provider.InitializeResult
	ConfirmResult    *provider.ConfirmResult
	RefundResult     *provider.RefundResult
	StatusResult     *provider.StatusResult

	// Error injection
	InitializeError error
	ConfirmError    error
	RefundError     error
	StatusError     error

	// Counters and captured arguments
	InitializeCallCount int32
	ConfirmCallCount    int32
	RefundCallCount     int32
	StatusCallCount     int32
	LastConfirmToken    string
	LastRefundToken     string
	LastRefundAmount    float64
}

// NewMockAdapter creates a mock adapter for the given provider.
func NewMockAdapter(prov domain.Provider) *MockAdapter {
	return &MockAdapter{ProviderName: prov}
}

func (m *MockAdapter) Provider() domain.Provider {
	return m.ProviderName
}

func (m *MockAdapter) Initialize(ctx context.Context, req provider.InitializeRequest) (*provider.InitializeResult, error) {
	atomic.AddInt32(&m.InitializeCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InitializeError != nil {
		return nil, m.InitializeError
	}
	if m.InitializeResult != nil {
		result := *m.InitializeResult
		return &result, nil
	}
	return &provider.InitializeResult{
		Token:       "tok_test",
		RedirectURL: "https://provider.test/checkout?token=tok_test",
	}, nil
}

func (m *MockAdapter) Confirm(ctx context.Context, token string) (*provider.ConfirmResult, error) {
	atomic.AddInt32(&m.ConfirmCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastConfirmToken = token
	if m.ConfirmError != nil {
		return nil, m.ConfirmError
	}
	if m.ConfirmResult != nil {
		result := *m.ConfirmResult
		return &result, nil
	}
	return &provider.ConfirmResult{
		Status:   domain.PaymentStatusCaptured,
		AuthCode: "AUTH01",
	}, nil
}

func (m *MockAdapter) Refund(ctx context.Context, token string, amount float64) (*provider.RefundResult, error) {
	atomic.AddInt32(&m.RefundCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRefundToken = token
	m.LastRefundAmount = amount
	if m.RefundError != nil {
		return nil, m.RefundError
	}
	if m.RefundResult != nil {
		result := *m.RefundResult
		return &result, nil
	}
	return &provider.RefundResult{
		Status:         domain.PaymentStatusRefunded,
		RefundedAmount: amount,
	}, nil
}

func (m *MockAdapter) QueryStatus(ctx context.Context, token string) (*provider.StatusResult, error) {
	atomic.AddInt32(&m.StatusCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatusError != nil {
		return nil, m.StatusError
	}
	if m.StatusResult != nil {
		result := *m.StatusResult
		return &result, nil
	}
	return &provider.StatusResult{Status: domain.PaymentStatusCaptured}, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of redis.LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquirePaymentLock(ctx context.Context, prov domain.Provider, transactionID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:payment:" + string(prov) + ":" + transactionID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleasePaymentLock(ctx context.Context, prov domain.Provider, transactionID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:payment:"+string(prov)+":"+transactionID)
	return nil
}

// IsLocked checks if a payment is locked (for test assertions).
func (m *MockLockStore) IsLocked(prov domain.Provider, transactionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:payment:"+string(prov)+":"+transactionID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of redis.CacheStoreInterface.
type MockCacheStore struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	// Counters
	GetCallCount        int32
	SetCallCount        int32
	InvalidateCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		payments: make(map[string]*domain.Payment),
	}
}

func cacheKey(prov domain.Provider, transactionID string) string {
	return string(prov) + ":" + transactionID
}

func (m *MockCacheStore) GetPayment(ctx context.Context, prov domain.Provider, transactionID string) (*domain.Payment, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[cacheKey(prov, transactionID)]
	if !ok {
		return nil, nil // Cache miss
	}
	copy := *payment
	return &copy, nil
}

func (m *MockCacheStore) SetPayment(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *payment
	m.payments[cacheKey(payment.Provider, payment.TransactionID)] = &copy
	return nil
}

func (m *MockCacheStore) InvalidatePayment(ctx context.Context, prov domain.Provider, transactionID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.payments, cacheKey(prov, transactionID))
	return nil
}

// Cached reports whether a payment view is cached (for test assertions).
func (m *MockCacheStore) Cached(prov domain.Provider, transactionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.payments[cacheKey(prov, transactionID)]
	return ok
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
