package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"paygate/internal/domain"
)

// Transbank is the Webpay Plus adapter. The gateway exchange itself is a
// stand-in: transactions are issued and settled locally, but request
// validation, token formats and response-code mapping follow the Webpay
// contract so the adapter boundary stays faithful.
type Transbank struct {
	creds Credentials
}

// NewTransbank creates a Transbank adapter with the given credentials.
func NewTransbank(creds Credentials) *Transbank {
	return &Transbank{creds: creds}
}

// Provider returns domain.ProviderTransbank.
func (t *Transbank) Provider() domain.Provider {
	return domain.ProviderTransbank
}

// Initialize starts a Webpay transaction and returns the redirect target the
// customer must visit to complete checkout.
func (t *Transbank) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if req.Amount <= 0 {
		return nil, &Error{
			Provider: domain.ProviderTransbank,
			Op:       "initialize",
			Message:  "amount must be positive",
		}
	}
	if req.Reference == "" {
		return nil, &Error{
			Provider: domain.ProviderTransbank,
			Op:       "initialize",
			Message:  "buy order reference is required",
		}
	}

	token := fmt.Sprintf("TBK_%d_%s", time.Now().UnixMilli(), randomToken(8))

	return &InitializeResult{
		Token:       token,
		RedirectURL: fmt.Sprintf("%s/webpay/initTransaction?token=%s", t.creds.APIBaseURL, token),
	}, nil
}

// webpayCommit mirrors the commit reply of the Webpay Plus API.
type webpayCommit struct {
	Status       string  `json:"status"`
	ResponseCode int     `json:"response_code"`
	AuthCode     string  `json:"authorization_code"`
	Amount       float64 `json:"amount"`
	BuyOrder     string  `json:"buy_order"`
}

// Confirm commits the transaction identified by the Webpay token.
func (t *Transbank) Confirm(ctx context.Context, token string) (*ConfirmResult, error) {
	if token == "" {
		return nil, &Error{
			Provider: domain.ProviderTransbank,
			Op:       "confirm",
			Message:  "missing transaction token",
		}
	}

	commit := webpayCommit{
		Status:       "AUTHORIZED",
		ResponseCode: 0,
		AuthCode:     randomToken(6),
	}

	status, err := mapWebpayCommit(commit.Status, commit.ResponseCode)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(commit)

	return &ConfirmResult{
		Status:   status,
		AuthCode: commit.AuthCode,
		Amount:   commit.Amount,
		Raw:      string(raw),
	}, nil
}

// Refund reverses or nullifies a committed transaction.
func (t *Transbank) Refund(ctx context.Context, token string, amount float64) (*RefundResult, error) {
	if token == "" {
		return nil, &Error{
			Provider: domain.ProviderTransbank,
			Op:       "refund",
			Message:  "missing transaction token",
		}
	}
	if amount <= 0 {
		return nil, &Error{
			Provider: domain.ProviderTransbank,
			Op:       "refund",
			Message:  "refund amount must be positive",
		}
	}

	raw, _ := json.Marshal(map[string]any{
		"type":            "REVERSED",
		"nullified_amount": amount,
	})

	return &RefundResult{
		Status:         domain.PaymentStatusRefunded,
		RefundedAmount: amount,
		Raw:            string(raw),
	}, nil
}

// QueryStatus fetches the current Webpay transaction state.
func (t *Transbank) QueryStatus(ctx context.Context, token string) (*StatusResult, error) {
	if token == "" {
		return nil, &Error{
			Provider: domain.ProviderTransbank,
			Op:       "status",
			Message:  "missing transaction token",
		}
	}

	status, err := mapWebpayCommit("AUTHORIZED", 0)
	if err != nil {
		return nil, err
	}

	return &StatusResult{Status: status, AuthCode: randomToken(6)}, nil
}

// mapWebpayCommit maps a Webpay commit status and response code onto the
// canonical enumeration. Response code 0 means approved; the negative codes
// are the documented decline reasons.
func mapWebpayCommit(status string, responseCode int) (domain.PaymentStatus, error) {
	switch status {
	case "AUTHORIZED":
		if responseCode == 0 {
			return domain.PaymentStatusCaptured, nil
		}
		if responseCode >= -8 && responseCode <= -1 {
			return domain.PaymentStatusDeclined, nil
		}
	case "FAILED":
		return domain.PaymentStatusDeclined, nil
	case "NULLIFIED", "REVERSED":
		return domain.PaymentStatusCancelled, nil
	case "INITIALIZED":
		return domain.PaymentStatusAuthorized, nil
	}

	return "", &Error{
		Provider: domain.ProviderTransbank,
		Op:       "confirm",
		Message:  fmt.Sprintf("unmappable webpay response: status=%q response_code=%d", status, responseCode),
	}
}
