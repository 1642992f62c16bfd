package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"paygate/internal/domain"
	"paygate/internal/repository"
	"paygate/internal/service"
)

func TestGetPaymentStatus_ReadOnly(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	payment := env.seedPayment("pay-1", "TXN_1_abc", domain.ProviderTransbank, domain.PaymentStatusAuthorized, 15000)
	payment.AuthCode = "777777"

	view, err := env.service.GetPaymentStatus(ctx, "TXN_1_abc", "transbank")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if view.Status != domain.PaymentStatusAuthorized {
		t.Errorf("unexpected status: %q", view.Status)
	}
	if view.AuthCode != "777777" {
		t.Errorf("unexpected auth code: %q", view.AuthCode)
	}

	// A status query never talks to the provider and never writes.
	if env.transbank.StatusCallCount != 0 || env.transbank.ConfirmCallCount != 0 {
		t.Error("status query must not call the provider adapter")
	}
	if env.repo.UpdateStatusCallCount != 0 {
		t.Errorf("status query must not write, got %d updates", env.repo.UpdateStatusCallCount)
	}
}

func TestGetPaymentStatus_CachesView(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	env.seedPayment("pay-1", "TXN_1_abc", domain.ProviderTransbank, domain.PaymentStatusCaptured, 15000)

	if _, err := env.service.GetPaymentStatus(ctx, "TXN_1_abc", "transbank"); err != nil {
		t.Fatalf("first lookup failed: %v", err)
	}
	if !env.cache.Cached(domain.ProviderTransbank, "TXN_1_abc") {
		t.Fatal("expected payment view cached after first lookup")
	}

	// Second lookup is served from cache even if the repo starts failing.
	env.repo.GetError = errors.New("db down")
	view, err := env.service.GetPaymentStatus(ctx, "TXN_1_abc", "transbank")
	if err != nil {
		t.Fatalf("cached lookup failed: %v", err)
	}
	if view.Status != domain.PaymentStatusCaptured {
		t.Errorf("unexpected cached status: %q", view.Status)
	}
}

func TestGetPaymentStatus_ProviderScopesLookup(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	// Same transaction id under two providers must resolve independently.
	env.seedPayment("pay-1", "TXN_shared", domain.ProviderTransbank, domain.PaymentStatusCaptured, 100)
	env.seedPayment("pay-2", "TXN_shared", domain.ProviderMercadoPago, domain.PaymentStatusDeclined, 200)

	tbk, err := env.service.GetPaymentStatus(ctx, "TXN_shared", "transbank")
	if err != nil {
		t.Fatalf("transbank lookup failed: %v", err)
	}
	mp, err := env.service.GetPaymentStatus(ctx, "TXN_shared", "mercado_pago")
	if err != nil {
		t.Fatalf("mercado pago lookup failed: %v", err)
	}

	if tbk.Status != domain.PaymentStatusCaptured || mp.Status != domain.PaymentStatusDeclined {
		t.Errorf("provider scoping broken: transbank=%q mercado_pago=%q", tbk.Status, mp.Status)
	}
}

func TestGetPaymentStatus_NotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	_, err := env.service.GetPaymentStatus(context.Background(), "TXN_missing", "transbank")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetPaymentByReference_ReturnsLatest(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	older := env.seedPayment("pay-1", "TXN_1", domain.ProviderTransbank, domain.PaymentStatusDeclined, 100)
	older.Reference = "order-dup"
	newer := env.seedPayment("pay-2", "TXN_2", domain.ProviderTransbank, domain.PaymentStatusCaptured, 100)
	newer.Reference = "order-dup"

	view, err := env.service.GetPaymentByReference(ctx, "order-dup")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if view.ID != "pay-2" {
		t.Errorf("expected the most recent payment, got %q", view.ID)
	}

	if _, err := env.service.GetPaymentByReference(ctx, ""); !errors.Is(err, service.ErrInvalidReference) {
		t.Errorf("empty reference: expected ErrInvalidReference, got %v", err)
	}
	if _, err := env.service.GetPaymentByReference(ctx, "order-unknown"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown reference: expected not found, got %v", err)
	}
}

func TestListPayments(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	env.seedPayment("pay-1", "TXN_1", domain.ProviderTransbank, domain.PaymentStatusCaptured, 100)
	env.seedPayment("pay-2", "TXN_2", domain.ProviderTransbank, domain.PaymentStatusDeclined, 200)
	env.seedPayment("pay-3", "TXN_3", domain.ProviderMercadoPago, domain.PaymentStatusCaptured, 300)

	t.Run("all newest first", func(t *testing.T) {
		views, err := env.service.ListPayments(ctx, "", 0)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(views) != 3 {
			t.Fatalf("expected 3 payments, got %d", len(views))
		}
		if views[0].ID != "pay-3" || views[2].ID != "pay-1" {
			t.Errorf("expected newest-first ordering, got %q..%q", views[0].ID, views[2].ID)
		}
	})

	t.Run("status filter", func(t *testing.T) {
		views, err := env.service.ListPayments(ctx, "captured", 0)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(views) != 2 {
			t.Fatalf("expected 2 captured payments, got %d", len(views))
		}
		for _, v := range views {
			if v.Status != domain.PaymentStatusCaptured {
				t.Errorf("filter leaked status %q", v.Status)
			}
		}
	})

	t.Run("limit", func(t *testing.T) {
		views, err := env.service.ListPayments(ctx, "", 2)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(views) != 2 {
			t.Errorf("expected limit of 2 applied, got %d", len(views))
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := env.service.ListPayments(ctx, "done", 0)
		if !errors.Is(err, service.ErrInvalidStatus) {
			t.Errorf("expected ErrInvalidStatus, got %v", err)
		}
	})
}

func TestPaymentStats(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	env.seedPayment("pay-1", "TXN_1", domain.ProviderTransbank, domain.PaymentStatusCaptured, 100)
	env.seedPayment("pay-2", "TXN_2", domain.ProviderTransbank, domain.PaymentStatusCaptured, 250)
	env.seedPayment("pay-3", "TXN_3", domain.ProviderMercadoPago, domain.PaymentStatusPending, 300)
	env.seedPayment("pay-4", "TXN_4", domain.ProviderMercadoPago, domain.PaymentStatusDeclined, 400)

	stats, err := env.service.PaymentStats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalCount != 4 {
		t.Errorf("expected total 4, got %d", stats.TotalCount)
	}
	if stats.CapturedCount != 2 {
		t.Errorf("expected 2 captured, got %d", stats.CapturedCount)
	}
	if stats.PendingCount != 1 {
		t.Errorf("expected 1 pending, got %d", stats.PendingCount)
	}
	if stats.TotalAmount != 350 {
		t.Errorf("expected captured sum 350, got %v", stats.TotalAmount)
	}
}

func TestExpireStalePayments(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	stale := env.seedPayment("pay-1", "TXN_1", domain.ProviderTransbank, domain.PaymentStatusPending, 100)
	stale.CreatedAt = time.Now().Add(-2 * time.Hour)
	fresh := env.seedPayment("pay-2", "TXN_2", domain.ProviderTransbank, domain.PaymentStatusPending, 100)
	fresh.CreatedAt = time.Now().Add(-time.Minute)
	env.seedPayment("pay-3", "TXN_3", domain.ProviderTransbank, domain.PaymentStatusAuthorized, 100)

	expired, err := env.service.ExpireStalePayments(ctx, time.Hour)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if expired != 1 {
		t.Errorf("expected 1 expired, got %d", expired)
	}

	if got := env.repo.GetPayment("pay-1").Status; got != domain.PaymentStatusError {
		t.Errorf("stale payment not expired: %q", got)
	}
	if got := env.repo.GetPayment("pay-2").Status; got != domain.PaymentStatusPending {
		t.Errorf("fresh pending payment must be untouched: %q", got)
	}
	if got := env.repo.GetPayment("pay-3").Status; got != domain.PaymentStatusAuthorized {
		t.Errorf("authorized payment must be untouched: %q", got)
	}
}
