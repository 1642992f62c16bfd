package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"paygate/internal/domain"
	"paygate/internal/provider"
	"paygate/internal/redis"
	"paygate/internal/repository"
)

const (
	// paymentLockTTL bounds how long one confirm/refund/callback may hold a
	// payment's lock, adapter call included.
	paymentLockTTL = 30 * time.Second

	// defaultReturnURL is used when the caller supplies no return destination.
	defaultReturnURL = "http://localhost:3000/payment-result"

	// defaultListLimit bounds list queries when the caller gives no limit.
	defaultListLimit = 10
)

// PaymentService orchestrates the payment lifecycle: it owns the state
// machine, dispatches to the provider adapter selected per transaction, and
// applies every status change through the repository's guarded update.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	adapters    *provider.Registry
	locks       redis.LockStoreInterface
	cache       redis.CacheStoreInterface
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	adapters *provider.Registry,
	locks redis.LockStoreInterface,
	cache redis.CacheStoreInterface,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		adapters:    adapters,
		locks:       locks,
		cache:       cache,
	}
}

// CreatePaymentRequest contains the parameters for initiating a payment.
type CreatePaymentRequest struct {
	Amount      float64
	Currency    string
	Provider    string
	Reference   string
	Description string
	Email       string
	Phone       string
	ReturnURL   string
	WebhookURL  string
	Metadata    domain.Metadata
}

// PaymentInitialization is returned by CreatePayment: where to send the
// customer and how to correlate the transaction later.
type PaymentInitialization struct {
	TransactionID string
	Provider      domain.Provider
	RedirectURL   string
	Token         string
	Message       string
}

// PaymentView is the canonical outward representation of a payment.
type PaymentView struct {
	ID            string
	Provider      domain.Provider
	Amount        float64
	Currency      string
	Status        domain.PaymentStatus
	TransactionID string
	AuthCode      string
	Message       string
	Timestamp     time.Time
	Metadata      domain.Metadata
}

// CallbackRequest is an asynchronous provider notification. Its status is
// treated as authoritative.
type CallbackRequest struct {
	Provider      string
	TransactionID string
	Status        string
	AuthCode      string
	Amount        float64
	Message       string
	Metadata      domain.Metadata
}

// CallbackResult acknowledges a processed callback.
type CallbackResult struct {
	Success   bool
	Message   string
	PaymentID string
}

// CreatePayment validates the request, persists a new PENDING record,
// initializes the transaction with the selected provider, and advances the
// record to AUTHORIZED or, when initialization fails, to ERROR. The record
// is never left PENDING once this call returns; a crash between the insert
// and the transition leaves a PENDING record for ExpireStalePayments.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentInitialization, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if len(req.Currency) != 3 {
		return nil, ErrInvalidCurrency
	}
	if req.Reference == "" {
		return nil, ErrInvalidReference
	}

	prov, ok := domain.ParseProvider(req.Provider)
	if !ok {
		return nil, ErrUnknownProvider
	}
	adapter, ok := s.adapters.Get(prov)
	if !ok {
		return nil, ErrUnknownProvider
	}

	payment := &domain.Payment{
		ID:            uuid.New().String(),
		Provider:      prov,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(req.Currency),
		Status:        domain.PaymentStatusPending,
		TransactionID: newTransactionID(),
		Reference:     req.Reference,
		Description:   req.Description,
		Email:         req.Email,
		Phone:         req.Phone,
		ReturnURL:     req.ReturnURL,
		WebhookURL:    req.WebhookURL,
		Metadata:      req.Metadata,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = defaultReturnURL
	}

	result, err := adapter.Initialize(ctx, provider.InitializeRequest{
		Amount:      req.Amount,
		Currency:    payment.Currency,
		Reference:   req.Reference,
		ReturnURL:   returnURL,
		Email:       req.Email,
		Description: req.Description,
	})
	if err != nil {
		// Record the failure durably before surfacing it.
		_, _ = s.paymentRepo.UpdateStatus(ctx, payment.ID, repository.StatusUpdate{
			ExpectedStatus:   domain.PaymentStatusPending,
			Status:           domain.PaymentStatusError,
			ProviderResponse: err.Error(),
		})
		return nil, err
	}

	raw, _ := json.Marshal(result)
	if _, err := s.paymentRepo.UpdateStatus(ctx, payment.ID, repository.StatusUpdate{
		ExpectedStatus:   domain.PaymentStatusPending,
		Status:           domain.PaymentStatusAuthorized,
		ProviderResponse: string(raw),
	}); err != nil {
		return nil, s.translateUpdateErr(err)
	}

	return &PaymentInitialization{
		TransactionID: payment.TransactionID,
		Provider:      prov,
		RedirectURL:   result.RedirectURL,
		Token:         result.Token,
		Message:       "Payment initialized successfully",
	}, nil
}

// ConfirmPayment finalizes a transaction after the customer completed the
// provider checkout. The canonical status reported by the adapter is applied
// through the guarded update keyed on the pre-call AUTHORIZED state; an
// adapter failure transitions the record to ERROR and is re-raised.
func (s *PaymentService) ConfirmPayment(ctx context.Context, transactionID, token, providerName string) (*PaymentView, error) {
	if transactionID == "" {
		return nil, ErrInvalidTransactionID
	}
	if token == "" {
		return nil, ErrMissingToken
	}
	prov, ok := domain.ParseProvider(providerName)
	if !ok {
		return nil, ErrUnknownProvider
	}
	adapter, ok := s.adapters.Get(prov)
	if !ok {
		return nil, ErrUnknownProvider
	}

	release, err := s.lockPayment(ctx, prov, transactionID)
	if err != nil {
		return nil, err
	}
	defer release()

	payment, err := s.paymentRepo.GetByTransactionID(ctx, transactionID, prov)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentStatusAuthorized {
		return nil, ErrPaymentNotConfirmable
	}

	result, err := adapter.Confirm(ctx, token)
	if err != nil {
		_, _ = s.paymentRepo.UpdateStatus(ctx, payment.ID, repository.StatusUpdate{
			ExpectedStatus:   domain.PaymentStatusAuthorized,
			Status:           domain.PaymentStatusError,
			ProviderResponse: err.Error(),
		})
		_ = s.cache.InvalidatePayment(ctx, prov, transactionID)
		return nil, err
	}

	updated, err := s.paymentRepo.UpdateStatus(ctx, payment.ID, repository.StatusUpdate{
		ExpectedStatus:   domain.PaymentStatusAuthorized,
		Status:           result.Status,
		AuthCode:         result.AuthCode,
		ProviderResponse: result.Raw,
	})
	if err != nil {
		return nil, s.translateUpdateErr(err)
	}

	_ = s.cache.InvalidatePayment(ctx, prov, transactionID)

	return mapPaymentToView(updated), nil
}

// GetPaymentStatus is a pure lookup: it never calls an adapter and never
// mutates the record. Reads go through the payment cache.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, transactionID, providerName string) (*PaymentView, error) {
	if transactionID == "" {
		return nil, ErrInvalidTransactionID
	}
	prov, ok := domain.ParseProvider(providerName)
	if !ok {
		return nil, ErrUnknownProvider
	}

	if cached, err := s.cache.GetPayment(ctx, prov, transactionID); err == nil && cached != nil {
		return mapPaymentToView(cached), nil
	}

	payment, err := s.paymentRepo.GetByTransactionID(ctx, transactionID, prov)
	if err != nil {
		return nil, err
	}

	_ = s.cache.SetPayment(ctx, payment)

	return mapPaymentToView(payment), nil
}

// GetPaymentByReference returns the most recent payment with the given
// caller reference.
func (s *PaymentService) GetPaymentByReference(ctx context.Context, reference string) (*PaymentView, error) {
	if reference == "" {
		return nil, ErrInvalidReference
	}

	payment, err := s.paymentRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	return mapPaymentToView(payment), nil
}

// RefundPayment reverses a captured payment. A zero amount refunds the
// original amount in full. Adapter failure leaves the record CAPTURED, which
// remains valid and safe to retry.
func (s *PaymentService) RefundPayment(ctx context.Context, transactionID, providerName string, amount float64) (*PaymentView, error) {
	if transactionID == "" {
		return nil, ErrInvalidTransactionID
	}
	if amount != 0 {
		if err := validateAmount(amount); err != nil {
			return nil, err
		}
	}
	prov, ok := domain.ParseProvider(providerName)
	if !ok {
		return nil, ErrUnknownProvider
	}
	adapter, ok := s.adapters.Get(prov)
	if !ok {
		return nil, ErrUnknownProvider
	}

	release, err := s.lockPayment(ctx, prov, transactionID)
	if err != nil {
		return nil, err
	}
	defer release()

	payment, err := s.paymentRepo.GetByTransactionID(ctx, transactionID, prov)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentStatusCaptured {
		return nil, ErrPaymentNotRefundable
	}

	refundAmount := amount
	if refundAmount == 0 {
		refundAmount = payment.Amount
	}
	if refundAmount > payment.Amount {
		return nil, ErrInvalidAmount
	}

	result, err := adapter.Refund(ctx, payment.TransactionID, refundAmount)
	if err != nil {
		return nil, fmt.Errorf("refund failed: %w", err)
	}

	updated, err := s.paymentRepo.UpdateStatus(ctx, payment.ID, repository.StatusUpdate{
		ExpectedStatus:   domain.PaymentStatusCaptured,
		Status:           domain.PaymentStatusRefunded,
		ProviderResponse: result.Raw,
	})
	if err != nil {
		return nil, s.translateUpdateErr(err)
	}

	_ = s.cache.InvalidatePayment(ctx, prov, transactionID)

	return mapPaymentToView(updated), nil
}

// HandleCallback applies an asynchronous provider notification. The reported
// status is authoritative: it is applied unconditionally, without calling
// any adapter and without re-checking the state machine's local edges.
func (s *PaymentService) HandleCallback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	if req.TransactionID == "" {
		return nil, ErrInvalidTransactionID
	}
	prov, ok := domain.ParseProvider(req.Provider)
	if !ok {
		return nil, ErrUnknownProvider
	}
	status, ok := domain.ParseStatus(req.Status)
	if !ok {
		return nil, ErrInvalidStatus
	}

	release, err := s.lockPayment(ctx, prov, req.TransactionID)
	if err != nil {
		return nil, err
	}
	defer release()

	payment, err := s.paymentRepo.GetByTransactionID(ctx, req.TransactionID, prov)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(req)
	if _, err := s.paymentRepo.UpdateStatus(ctx, payment.ID, repository.StatusUpdate{
		Status:           status,
		AuthCode:         req.AuthCode,
		ProviderResponse: string(raw),
		Metadata:         req.Metadata,
	}); err != nil {
		return nil, s.translateUpdateErr(err)
	}

	_ = s.cache.InvalidatePayment(ctx, prov, req.TransactionID)

	return &CallbackResult{
		Success:   true,
		Message:   "Webhook processed",
		PaymentID: payment.ID,
	}, nil
}

// ListPayments returns the most recent payments, optionally filtered by
// status, bounded by limit (default 10). Ordering is by creation time,
// newest first, for both forms.
func (s *PaymentService) ListPayments(ctx context.Context, statusFilter string, limit int) ([]*PaymentView, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var payments []*domain.Payment
	var err error

	if statusFilter != "" {
		status, ok := domain.ParseStatus(statusFilter)
		if !ok {
			return nil, ErrInvalidStatus
		}
		payments, err = s.paymentRepo.ListByStatus(ctx, status, limit)
	} else {
		payments, err = s.paymentRepo.List(ctx, limit)
	}
	if err != nil {
		return nil, err
	}

	views := make([]*PaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, mapPaymentToView(p))
	}
	return views, nil
}

// PaymentStats returns aggregate payment counts and the captured amount sum.
func (s *PaymentService) PaymentStats(ctx context.Context) (*repository.PaymentStats, error) {
	return s.paymentRepo.Stats(ctx)
}

// ExpireStalePayments transitions PENDING records older than maxAge to ERROR.
// A record is only PENDING after CreatePayment returns if the process died
// between the insert and the authorize transition, so there is no guarantee
// a provider-side transaction exists for it. Returns the number of records
// expired; records that move concurrently are skipped.
func (s *PaymentService) ExpireStalePayments(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := s.paymentRepo.ListPendingOlderThan(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, payment := range stale {
		_, err := s.paymentRepo.UpdateStatus(ctx, payment.ID, repository.StatusUpdate{
			ExpectedStatus:   domain.PaymentStatusPending,
			Status:           domain.PaymentStatusError,
			ProviderResponse: "expired by pending-payment reconciliation sweep",
		})
		if err != nil {
			if isConflict(err) {
				continue
			}
			return expired, err
		}
		_ = s.cache.InvalidatePayment(ctx, payment.Provider, payment.TransactionID)
		expired++
	}

	return expired, nil
}

// lockPayment serializes operations on one (provider, transactionID) pair.
// The returned release function is safe to defer.
func (s *PaymentService) lockPayment(ctx context.Context, prov domain.Provider, transactionID string) (func(), error) {
	ok, err := s.locks.AcquirePaymentLock(ctx, prov, transactionID, paymentLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPaymentConflict
	}
	return func() {
		_ = s.locks.ReleasePaymentLock(ctx, prov, transactionID)
	}, nil
}

func (s *PaymentService) translateUpdateErr(err error) error {
	if isConflict(err) {
		return fmt.Errorf("%w: %w", ErrPaymentConflict, err)
	}
	return err
}

func isConflict(err error) bool {
	return errors.Is(err, repository.ErrStaleStatus)
}

// validateAmount enforces a positive value with at most two fractional digits.
func validateAmount(amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	cents := amount * 100
	if math.Abs(cents-math.Round(cents)) > 1e-6 {
		return ErrInvalidAmount
	}
	return nil
}

func mapPaymentToView(payment *domain.Payment) *PaymentView {
	return &PaymentView{
		ID:            payment.ID,
		Provider:      payment.Provider,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Status:        payment.Status,
		TransactionID: payment.TransactionID,
		AuthCode:      payment.AuthCode,
		Message:       fmt.Sprintf("Payment %s", payment.Status),
		Timestamp:     payment.UpdatedAt,
		Metadata:      payment.Metadata,
	}
}

// newTransactionID generates the provider-facing correlation id.
func newTransactionID() string {
	return fmt.Sprintf("TXN_%d_%s", time.Now().UnixMilli(), strings.Split(uuid.New().String(), "-")[0])
}
