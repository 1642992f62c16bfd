package tests

import (
	"context"
	"errors"
	"testing"

	"paygate/internal/domain"
	"paygate/internal/repository"
	"paygate/internal/service"
)

func TestHandleCallback_AppliesReportedStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	env.seedPayment("pay-1", "TXN_1_abc", domain.ProviderTransbank, domain.PaymentStatusAuthorized, 15000)

	result, err := env.service.HandleCallback(ctx, service.CallbackRequest{
		Provider:      "transbank",
		TransactionID: "TXN_1_abc",
		Status:        "captured",
		AuthCode:      "654321",
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !result.Success {
		t.Error("expected success=true")
	}
	if result.Message != "Webhook processed" {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if result.PaymentID != "pay-1" {
		t.Errorf("unexpected payment id: %q", result.PaymentID)
	}

	stored := env.repo.GetPayment("pay-1")
	if stored.Status != domain.PaymentStatusCaptured {
		t.Errorf("expected captured, got %q", stored.Status)
	}
	if stored.AuthCode != "654321" {
		t.Errorf("auth code not applied: %q", stored.AuthCode)
	}
}

func TestHandleCallback_AuthoritativeOverEdges(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	// captured -> declined is not a local state-machine edge; the provider's
	// asynchronous word still wins.
	env.seedPayment("pay-1", "TXN_1_abc", domain.ProviderMercadoPago, domain.PaymentStatusCaptured, 15000)

	_, err := env.service.HandleCallback(ctx, service.CallbackRequest{
		Provider:      "mercado_pago",
		TransactionID: "TXN_1_abc",
		Status:        "declined",
		Message:       "chargeback reversal",
	})
	if err != nil {
		t.Fatalf("authoritative callback must apply: %v", err)
	}

	stored := env.repo.GetPayment("pay-1")
	if stored.Status != domain.PaymentStatusDeclined {
		t.Errorf("expected declined, got %q", stored.Status)
	}

	// No adapter is consulted while processing a callback.
	if env.mercadoPago.ConfirmCallCount != 0 || env.mercadoPago.StatusCallCount != 0 {
		t.Error("callback processing must not call the provider adapter")
	}
}

func TestHandleCallback_ReplacesMetadata(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	payment := env.seedPayment("pay-1", "TXN_1_abc", domain.ProviderTransbank, domain.PaymentStatusAuthorized, 15000)
	payment.Metadata = domain.Metadata{"channel": "web"}

	_, err := env.service.HandleCallback(ctx, service.CallbackRequest{
		Provider:      "transbank",
		TransactionID: "TXN_1_abc",
		Status:        "captured",
		Metadata:      domain.Metadata{"installments": float64(3)},
	})
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	stored := env.repo.GetPayment("pay-1")
	if stored.Metadata["installments"] != float64(3) {
		t.Errorf("callback metadata not applied: %v", stored.Metadata)
	}
}

func TestHandleCallback_KeepsMetadataWhenAbsent(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	payment := env.seedPayment("pay-1", "TXN_1_abc", domain.ProviderTransbank, domain.PaymentStatusAuthorized, 15000)
	payment.Metadata = domain.Metadata{"channel": "web"}

	_, err := env.service.HandleCallback(ctx, service.CallbackRequest{
		Provider:      "transbank",
		TransactionID: "TXN_1_abc",
		Status:        "captured",
	})
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	stored := env.repo.GetPayment("pay-1")
	if stored.Metadata["channel"] != "web" {
		t.Errorf("existing metadata lost: %v", stored.Metadata)
	}
}

func TestHandleCallback_UnknownTransaction(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	_, err := env.service.HandleCallback(context.Background(), service.CallbackRequest{
		Provider:      "transbank",
		TransactionID: "TXN_missing",
		Status:        "captured",
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandleCallback_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	env.seedPayment("pay-1", "TXN_1_abc", domain.ProviderTransbank, domain.PaymentStatusAuthorized, 15000)

	tests := []struct {
		name    string
		req     service.CallbackRequest
		wantErr error
	}{
		{
			name:    "missing transaction id",
			req:     service.CallbackRequest{Provider: "transbank", Status: "captured"},
			wantErr: service.ErrInvalidTransactionID,
		},
		{
			name:    "unknown provider",
			req:     service.CallbackRequest{Provider: "stripe", TransactionID: "TXN_1_abc", Status: "captured"},
			wantErr: service.ErrUnknownProvider,
		},
		{
			name:    "unknown status",
			req:     service.CallbackRequest{Provider: "transbank", TransactionID: "TXN_1_abc", Status: "almost_done"},
			wantErr: service.ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.HandleCallback(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// The seeded payment must be untouched by rejected callbacks.
	if stored := env.repo.GetPayment("pay-1"); stored.Status != domain.PaymentStatusAuthorized {
		t.Errorf("payment mutated by rejected callback: %q", stored.Status)
	}
}

func TestHandleCallback_InvalidatesCache(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	payment := env.seedPayment("pay-1", "TXN_1_abc", domain.ProviderTransbank, domain.PaymentStatusAuthorized, 15000)
	_ = env.cache.SetPayment(ctx, payment)

	_, err := env.service.HandleCallback(ctx, service.CallbackRequest{
		Provider:      "transbank",
		TransactionID: "TXN_1_abc",
		Status:        "captured",
	})
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	if env.cache.Cached(domain.ProviderTransbank, "TXN_1_abc") {
		t.Error("stale payment view left in cache after callback")
	}
}
