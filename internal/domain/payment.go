package domain

import "time"

// Provider identifies an external payment processor.
type Provider string

const (
	ProviderTransbank   Provider = "transbank"
	ProviderMercadoPago Provider = "mercado_pago"
)

// ParseProvider returns the Provider for the given value, or false if the
// value names no known provider.
func ParseProvider(value string) (Provider, bool) {
	switch Provider(value) {
	case ProviderTransbank:
		return ProviderTransbank, true
	case ProviderMercadoPago:
		return ProviderMercadoPago, true
	}
	return "", false
}

// PaymentStatus represents the canonical, provider-agnostic status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusDeclined   PaymentStatus = "declined"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusError      PaymentStatus = "error"
)

// ParseStatus returns the PaymentStatus for the given value, or false if the
// value names no canonical status.
func ParseStatus(value string) (PaymentStatus, bool) {
	switch PaymentStatus(value) {
	case PaymentStatusPending, PaymentStatusAuthorized, PaymentStatusCaptured,
		PaymentStatusDeclined, PaymentStatusCancelled, PaymentStatusRefunded,
		PaymentStatusError:
		return PaymentStatus(value), true
	}
	return "", false
}

// IsTerminal reports whether no locally-initiated operation may move the
// payment out of this status. A later provider callback may still correct
// an ERROR record.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusDeclined, PaymentStatusCancelled, PaymentStatusRefunded, PaymentStatusError:
		return true
	}
	return false
}

// Metadata holds caller- or provider-supplied context for a payment.
type Metadata map[string]any

// Payment represents a monetary transaction routed through an external provider.
// The (TransactionID, Provider) pair is unique across all records. Status is
// only ever changed through the transaction store's guarded update; records
// are never deleted.
type Payment struct {
	ID               string
	Provider         Provider
	Amount           float64
	Currency         string
	Status           PaymentStatus
	TransactionID    string
	Reference        string
	Description      string
	AuthCode         string
	Email            string
	Phone            string
	ReturnURL        string
	WebhookURL       string
	Metadata         Metadata
	ProviderResponse string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
