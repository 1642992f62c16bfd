package repository

import (
	"context"
	"time"

	"paygate/internal/domain"
)

// StatusUpdate describes a guarded transition applied to a payment record.
// When ExpectedStatus is set, the update only applies if the record still
// holds that status; a mismatch yields ErrStaleStatus. An empty
// ExpectedStatus applies unconditionally (provider callbacks are
// authoritative and use this form).
type StatusUpdate struct {
	ExpectedStatus   domain.PaymentStatus
	Status           domain.PaymentStatus
	AuthCode         string
	ProviderResponse string
	Metadata         domain.Metadata // nil leaves stored metadata unchanged
}

// PaymentStats aggregates record counts and the captured amount sum.
type PaymentStats struct {
	TotalCount    int
	CapturedCount int
	PendingCount  int
	TotalAmount   float64
}

// PaymentRepository defines the persistence contract for payment records.
// Implementations must make UpdateStatus a single atomic read-modify-write
// so concurrent transitions on one record cannot both win.
type PaymentRepository interface {
	// Create persists a new payment. Returns ErrDuplicateTransaction when
	// the (transaction_id, provider) pair already exists.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByTransactionID retrieves a payment by its provider-facing
	// transaction id and provider. Returns ErrNotFound when absent.
	GetByTransactionID(ctx context.Context, transactionID string, provider domain.Provider) (*domain.Payment, error)

	// GetByReference retrieves the most recent payment carrying the given
	// caller reference. Returns ErrNotFound when absent.
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)

	// UpdateStatus applies a guarded status transition and returns the
	// updated record. Returns ErrNotFound when the record does not exist
	// and ErrStaleStatus when the expected-status guard fails.
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) (*domain.Payment, error)

	// ListByStatus returns up to limit payments with the given status,
	// newest first.
	ListByStatus(ctx context.Context, status domain.PaymentStatus, limit int) ([]*domain.Payment, error)

	// List returns up to limit payments, newest first.
	List(ctx context.Context, limit int) ([]*domain.Payment, error)

	// ListPendingOlderThan returns PENDING payments created before the
	// cutoff, oldest first. Used by the stale-record reconciliation sweep.
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.Payment, error)

	// Stats returns aggregate payment counts and the captured amount sum.
	Stats(ctx context.Context) (*PaymentStats, error)
}
