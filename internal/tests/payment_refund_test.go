package tests

import (
	"context"
	"errors"
	"testing"

	"paygate/internal/domain"
	"paygate/internal/provider"
	"paygate/internal/repository"
	"paygate/internal/service"
)

func TestRefundPayment_FullRefundByDefault(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	env.seedPayment("pay-1", "TXN_1_abc", domain.ProviderTransbank, domain.PaymentStatusCaptured, 25000)

	view, err := env.service.RefundPayment(ctx, "TXN_1_abc", "transbank", 0)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if view.Status != domain.PaymentStatusRefunded {
		t.Errorf("expected refunded, got %q", view.Status)
	}

	// Zero amount means refund the full original amount.
	if env.transbank.LastRefundAmount != 25000 {
		t.Errorf("expected full amount 25000 refunded, got %v", env.transbank.LastRefundAmount)
	}
	if env.transbank.LastRefundToken != "TXN_1_abc" {
		t.Errorf("adapter received wrong token: %q", env.transbank.LastRefundToken)
	}

	stored := env.repo.GetPayment("pay-1")
	if stored.Status != domain.PaymentStatusRefunded {
		t.Errorf("stored status not updated: %q", stored.Status)
	}
	if env.locks.IsLocked(domain.ProviderTransbank, "TXN_1_abc") {
		t.Error("payment lock not released after refund")
	}
}

func TestRefundPayment_PartialAmount(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	env.seedPayment("pay-1", "TXN_1_abc", domain.ProviderMercadoPago, domain.PaymentStatusCaptured, 25000)

	view, err := env.service.RefundPayment(ctx, "TXN_1_abc", "mercado_pago", 10000)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if view.Status != domain.PaymentStatusRefunded {
		t.Errorf("expected refunded, got %q", view.Status)
	}
	if env.mercadoPago.LastRefundAmount != 10000 {
		t.Errorf("expected partial amount 10000, got %v", env.mercadoPago.LastRefundAmount)
	}
}

func TestRefundPayment_AmountExceedsOriginal(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	env.seedPayment("pay-1", "TXN_1_abc", domain.ProviderTransbank, domain.PaymentStatusCaptured, 25000)

	_, err := env.service.RefundPayment(ctx, "TXN_1_abc", "transbank", 25001)
	if !errors.Is(err, service.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if env.transbank.RefundCallCount != 0 {
		t.Errorf("adapter must not be called for an over-limit refund, got %d calls", env.transbank.RefundCallCount)
	}
	if stored := env.repo.GetPayment("pay-1"); stored.Status != domain.PaymentStatusCaptured {
		t.Errorf("payment must stay captured, got %q", stored.Status)
	}
}

func TestRefundPayment_OnlyCapturedRefundable(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	for i, status := range []domain.PaymentStatus{
		domain.PaymentStatusPending,
		domain.PaymentStatusAuthorized,
		domain.PaymentStatusDeclined,
		domain.PaymentStatusCancelled,
		domain.PaymentStatusRefunded,
		domain.PaymentStatusError,
	} {
		status := status
		t.Run(string(status), func(t *testing.T) {
			txnID := "TXN_refund_" + string(rune('a'+i))
			env.seedPayment("pay-"+string(status), txnID, domain.ProviderTransbank, status, 1000)

			_, err := env.service.RefundPayment(ctx, txnID, "transbank", 0)
			if !errors.Is(err, service.ErrPaymentNotRefundable) {
				t.Errorf("status %q: expected ErrPaymentNotRefundable, got %v", status, err)
			}
		})
	}

	if env.transbank.RefundCallCount != 0 {
		t.Errorf("adapter must not be called for non-refundable payments, got %d calls", env.transbank.RefundCallCount)
	}
}

func TestRefundPayment_AdapterFailureLeavesCaptured(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	env.seedPayment("pay-1", "TXN_1_abc", domain.ProviderTransbank, domain.PaymentStatusCaptured, 25000)
	env.transbank.RefundError = &provider.Error{
		Provider: domain.ProviderTransbank,
		Op:       "refund",
		Message:  "nullification rejected",
	}

	_, err := env.service.RefundPayment(ctx, "TXN_1_abc", "transbank", 0)
	if err == nil {
		t.Fatal("expected error")
	}

	// A failed refund keeps the payment valid and retryable.
	stored := env.repo.GetPayment("pay-1")
	if stored.Status != domain.PaymentStatusCaptured {
		t.Errorf("payment must stay captured after adapter failure, got %q", stored.Status)
	}
	if env.locks.IsLocked(domain.ProviderTransbank, "TXN_1_abc") {
		t.Error("payment lock not released after failed refund")
	}

	// Retry succeeds once the provider recovers.
	env.transbank.RefundError = nil
	view, err := env.service.RefundPayment(ctx, "TXN_1_abc", "transbank", 0)
	if err != nil {
		t.Fatalf("retry after recovery failed: %v", err)
	}
	if view.Status != domain.PaymentStatusRefunded {
		t.Errorf("expected refunded after retry, got %q", view.Status)
	}
}

func TestRefundPayment_NotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	_, err := env.service.RefundPayment(context.Background(), "TXN_missing", "transbank", 0)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if env.transbank.RefundCallCount != 0 {
		t.Errorf("adapter must not be called for a missing payment, got %d calls", env.transbank.RefundCallCount)
	}
}

func TestRefundPayment_InputValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.service.RefundPayment(ctx, "", "transbank", 0); !errors.Is(err, service.ErrInvalidTransactionID) {
		t.Errorf("empty transaction id: expected ErrInvalidTransactionID, got %v", err)
	}
	if _, err := env.service.RefundPayment(ctx, "TXN_1", "transbank", -5); !errors.Is(err, service.ErrInvalidAmount) {
		t.Errorf("negative amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := env.service.RefundPayment(ctx, "TXN_1", "square", 0); !errors.Is(err, service.ErrUnknownProvider) {
		t.Errorf("unknown provider: expected ErrUnknownProvider, got %v", err)
	}
}
