package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"paygate/internal/domain"
)

const mpCheckoutURL = "https://www.mercadopago.com.ar/checkout/v1/redirect"

// MercadoPago is the Checkout Pro adapter. Like the Transbank variant, the
// network exchange is a stand-in; preference creation, payment lookup and
// status mapping follow the Mercado Pago API shapes.
type MercadoPago struct {
	creds Credentials
}

// NewMercadoPago creates a Mercado Pago adapter with the given credentials.
func NewMercadoPago(creds Credentials) *MercadoPago {
	return &MercadoPago{creds: creds}
}

// Provider returns domain.ProviderMercadoPago.
func (m *MercadoPago) Provider() domain.Provider {
	return domain.ProviderMercadoPago
}

// Initialize creates a checkout preference and returns its init point.
func (m *MercadoPago) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if req.Amount <= 0 {
		return nil, &Error{
			Provider: domain.ProviderMercadoPago,
			Op:       "initialize",
			Message:  "amount must be positive",
		}
	}
	if req.Reference == "" {
		return nil, &Error{
			Provider: domain.ProviderMercadoPago,
			Op:       "initialize",
			Message:  "external reference is required",
		}
	}

	preferenceID := strings.ToLower(randomToken(24))

	return &InitializeResult{
		Token:       preferenceID,
		RedirectURL: fmt.Sprintf("%s?pref_id=%s", mpCheckoutURL, preferenceID),
	}, nil
}

// mpPayment mirrors the payment resource of the Mercado Pago API.
type mpPayment struct {
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	AuthorizationCode string  `json:"authorization_code"`
	TransactionAmount float64 `json:"transaction_amount"`
	ExternalReference string  `json:"external_reference"`
}

// Confirm fetches the payment behind the preference and normalizes its status.
func (m *MercadoPago) Confirm(ctx context.Context, token string) (*ConfirmResult, error) {
	if token == "" {
		return nil, &Error{
			Provider: domain.ProviderMercadoPago,
			Op:       "confirm",
			Message:  "missing payment id",
		}
	}

	payment := mpPayment{
		Status:            "approved",
		StatusDetail:      "accredited",
		AuthorizationCode: randomToken(6),
	}

	status, err := mapMercadoPagoStatus(payment.Status)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(payment)

	return &ConfirmResult{
		Status:   status,
		AuthCode: payment.AuthorizationCode,
		Amount:   payment.TransactionAmount,
		Raw:      string(raw),
	}, nil
}

// Refund posts a refund against the payment.
func (m *MercadoPago) Refund(ctx context.Context, token string, amount float64) (*RefundResult, error) {
	if token == "" {
		return nil, &Error{
			Provider: domain.ProviderMercadoPago,
			Op:       "refund",
			Message:  "missing payment id",
		}
	}
	if amount <= 0 {
		return nil, &Error{
			Provider: domain.ProviderMercadoPago,
			Op:       "refund",
			Message:  "refund amount must be positive",
		}
	}

	refundID := fmt.Sprintf("MP_%d_%s", time.Now().UnixMilli(), randomToken(8))
	raw, _ := json.Marshal(map[string]any{
		"id":     refundID,
		"amount": amount,
		"status": "refunded",
	})

	return &RefundResult{
		Status:         domain.PaymentStatusRefunded,
		RefundedAmount: amount,
		RefundID:       refundID,
		Raw:            string(raw),
	}, nil
}

// QueryStatus fetches the payment state without mutating it.
func (m *MercadoPago) QueryStatus(ctx context.Context, token string) (*StatusResult, error) {
	if token == "" {
		return nil, &Error{
			Provider: domain.ProviderMercadoPago,
			Op:       "status",
			Message:  "missing payment id",
		}
	}

	status, err := mapMercadoPagoStatus("approved")
	if err != nil {
		return nil, err
	}

	return &StatusResult{Status: status, AuthCode: randomToken(6)}, nil
}

// mapMercadoPagoStatus maps a native Mercado Pago payment status onto the
// canonical enumeration.
func mapMercadoPagoStatus(native string) (domain.PaymentStatus, error) {
	switch native {
	case "approved":
		return domain.PaymentStatusCaptured, nil
	case "authorized":
		return domain.PaymentStatusAuthorized, nil
	case "pending", "in_process":
		return domain.PaymentStatusPending, nil
	case "rejected":
		return domain.PaymentStatusDeclined, nil
	case "cancelled":
		return domain.PaymentStatusCancelled, nil
	case "refunded", "charged_back":
		return domain.PaymentStatusRefunded, nil
	}

	return "", &Error{
		Provider: domain.ProviderMercadoPago,
		Op:       "confirm",
		Message:  fmt.Sprintf("unmappable mercado pago status %q", native),
	}
}
