package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"paygate/internal/domain"
	"paygate/internal/repository"
)

const uniqueViolation = "23505"

const paymentColumns = `
	id, provider, amount, currency, status, transaction_id, reference,
	description, auth_code, email, phone, return_url, webhook_url,
	metadata, provider_response, created_at, updated_at
`

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

// Create persists a new payment. The payments table carries a unique index
// on (transaction_id, provider); a violation maps to ErrDuplicateTransaction.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	metadata, err := marshalMetadata(payment.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			id, provider, amount, currency, status, transaction_id, reference,
			description, auth_code, email, phone, return_url, webhook_url,
			metadata, provider_response, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb, $15, NOW(), NOW())
	`

	_, err = r.q.ExecContext(ctx, query,
		payment.ID,
		payment.Provider,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.TransactionID,
		payment.Reference,
		payment.Description,
		payment.AuthCode,
		payment.Email,
		payment.Phone,
		payment.ReturnURL,
		payment.WebhookURL,
		metadata,
		payment.ProviderResponse,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicateTransaction
		}
		return err
	}

	return nil
}

// GetByTransactionID retrieves a payment by (transaction_id, provider).
func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string, provider domain.Provider) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments WHERE transaction_id = $1 AND provider = $2
	`

	return scanPayment(r.q.QueryRowContext(ctx, query, transactionID, provider))
}

// GetByReference retrieves the most recent payment with the given reference.
func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments WHERE reference = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanPayment(r.q.QueryRowContext(ctx, query, reference))
}

// UpdateStatus applies a guarded status transition as a single conditional
// UPDATE. With an expected status set, a concurrent transition makes the
// guard match zero rows and the caller gets ErrStaleStatus. AuthCode is only
// overwritten when non-empty; metadata only when supplied.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, update repository.StatusUpdate) (*domain.Payment, error) {
	metadata, err := marshalMetadata(update.Metadata)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE payments
		SET status = $1,
			auth_code = COALESCE(NULLIF($2, ''), auth_code),
			provider_response = $3,
			metadata = COALESCE($4::jsonb, metadata),
			updated_at = NOW()
		WHERE id = $5 AND ($6 = '' OR status = $6)
		RETURNING ` + paymentColumns

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query,
		update.Status,
		update.AuthCode,
		update.ProviderResponse,
		metadata,
		id,
		string(update.ExpectedStatus),
	))
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, repository.ErrNotFound) || update.ExpectedStatus == "" {
		return nil, err
	}

	// Guard matched no row: decide between a missing record and a lost race.
	var current string
	row := r.q.QueryRowContext(ctx, `SELECT status FROM payments WHERE id = $1`, id)
	if err := row.Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return nil, repository.ErrStaleStatus
}

// ListByStatus returns up to limit payments with the given status, newest first.
func (r *PaymentRepository) ListByStatus(ctx context.Context, status domain.PaymentStatus, limit int) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPayments(rows)
}

// List returns up to limit payments, newest first.
func (r *PaymentRepository) List(ctx context.Context, limit int) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPayments(rows)
}

// ListPendingOlderThan returns PENDING payments created before the cutoff,
// oldest first, for the stale-record reconciliation sweep.
func (r *PaymentRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
	`

	rows, err := r.q.QueryContext(ctx, query, domain.PaymentStatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPayments(rows)
}

// Stats returns aggregate payment counts and the captured amount sum.
func (r *PaymentRepository) Stats(ctx context.Context) (*repository.PaymentStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COALESCE(SUM(amount) FILTER (WHERE status = $1), 0)
		FROM payments
	`

	var stats repository.PaymentStats
	err := r.q.QueryRowContext(ctx, query, domain.PaymentStatusCaptured, domain.PaymentStatusPending).Scan(
		&stats.TotalCount,
		&stats.CapturedCount,
		&stats.PendingCount,
		&stats.TotalAmount,
	)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// scanPayment scans a single payment row, mapping sql.ErrNoRows to ErrNotFound.
func scanPayment(row *sql.Row) (*domain.Payment, error) {
	var payment domain.Payment
	var metadata []byte

	err := row.Scan(
		&payment.ID,
		&payment.Provider,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.TransactionID,
		&payment.Reference,
		&payment.Description,
		&payment.AuthCode,
		&payment.Email,
		&payment.Phone,
		&payment.ReturnURL,
		&payment.WebhookURL,
		&metadata,
		&payment.ProviderResponse,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &payment.Metadata); err != nil {
			return nil, err
		}
	}

	return &payment, nil
}

func collectPayments(rows *sql.Rows) ([]*domain.Payment, error) {
	var payments []*domain.Payment

	for rows.Next() {
		var payment domain.Payment
		var metadata []byte

		err := rows.Scan(
			&payment.ID,
			&payment.Provider,
			&payment.Amount,
			&payment.Currency,
			&payment.Status,
			&payment.TransactionID,
			&payment.Reference,
			&payment.Description,
			&payment.AuthCode,
			&payment.Email,
			&payment.Phone,
			&payment.ReturnURL,
			&payment.WebhookURL,
			&metadata,
			&payment.ProviderResponse,
			&payment.CreatedAt,
			&payment.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &payment.Metadata); err != nil {
				return nil, err
			}
		}

		payments = append(payments, &payment)
	}

	return payments, rows.Err()
}

// marshalMetadata serializes metadata for the jsonb column; nil metadata
// yields a NULL so COALESCE keeps the stored value. The value is passed as
// text (with a ::jsonb cast in the query) because lib/pq encodes []byte as
// bytea.
func marshalMetadata(metadata domain.Metadata) (any, error) {
	if metadata == nil {
		return nil, nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
