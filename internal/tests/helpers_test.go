package tests

import (
	"paygate/internal/domain"
	"paygate/internal/provider"
	"paygate/internal/service"
)

// testEnv bundles a PaymentService with the mocks behind it.
type testEnv struct {
	service     *service.PaymentService
	repo        *MockPaymentRepository
	transbank   *MockAdapter
	mercadoPago *MockAdapter
	locks       *MockLockStore
	cache       *MockCacheStore
}

func newTestEnv() *testEnv {
	repo := NewMockPaymentRepository()
	transbank := NewMockAdapter(domain.ProviderTransbank)
	mercadoPago := NewMockAdapter(domain.ProviderMercadoPago)
	locks := NewMockLockStore()
	cache := NewMockCacheStore()

	svc := service.NewPaymentService(
		repo,
		provider.NewRegistry(transbank, mercadoPago),
		locks,
		cache,
	)

	return &testEnv{
		service:     svc,
		repo:        repo,
		transbank:   transbank,
		mercadoPago: mercadoPago,
		locks:       locks,
		cache:       cache,
	}
}

// seedPayment inserts a payment directly into the repository in the given
// status, bypassing the service, and returns it.
func (e *testEnv) seedPayment(id, transactionID string, prov domain.Provider, status domain.PaymentStatus, amount float64) *domain.Payment {
	payment := &domain.Payment{
		ID:            id,
		Provider:      prov,
		Amount:        amount,
		Currency:      "CLP",
		Status:        status,
		TransactionID: transactionID,
		Reference:     "order-" + id,
	}
	e.repo.AddPayment(payment)
	return payment
}

func validCreateRequest(providerName string) service.CreatePaymentRequest {
	return service.CreatePaymentRequest{
		Amount:    15000,
		Currency:  "CLP",
		Provider:  providerName,
		Reference: "order-123",
		Email:     "buyer@example.com",
	}
}
