// Package provider contains the payment provider adapters. Each adapter
// translates canonical requests into one provider's semantics and normalizes
// the provider's replies into the canonical status enumeration. A reply the
// adapter cannot map surfaces an *Error instead of a guessed status.
package provider

import (
	"context"
	"crypto/rand"
	"fmt"

	"paygate/internal/domain"
)

// Credentials holds per-provider configuration, injected at construction
// and treated as read-only afterwards.
type Credentials struct {
	APIKey     string
	APISecret  string
	APIBaseURL string
	CommerceID string
}

// InitializeRequest carries the data needed to start a provider transaction.
type InitializeRequest struct {
	Amount      float64
	Currency    string
	Reference   string
	ReturnURL   string
	Email       string
	Description string
}

// InitializeResult is the normalized outcome of a transaction initialization.
type InitializeResult struct {
	Token       string
	RedirectURL string
}

// ConfirmResult is the normalized outcome of a transaction confirmation.
type ConfirmResult struct {
	Status   domain.PaymentStatus
	AuthCode string
	Amount   float64
	Raw      string
}

// RefundResult is the normalized outcome of a refund request.
type RefundResult struct {
	Status         domain.PaymentStatus
	RefundedAmount float64
	RefundID       string
	Raw            string
}

// StatusResult is the normalized outcome of a provider-side status query.
type StatusResult struct {
	Status   domain.PaymentStatus
	AuthCode string
}

// Adapter is the capability set every payment provider variant implements.
type Adapter interface {
	// Provider returns the provider this adapter serves.
	Provider() domain.Provider

	// Initialize starts a provider transaction and returns the provider
	// token plus the redirect target for the customer.
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)

	// Confirm finalizes a transaction after the customer completed checkout.
	Confirm(ctx context.Context, token string) (*ConfirmResult, error)

	// Refund reverses a captured transaction for the given amount.
	Refund(ctx context.Context, token string, amount float64) (*RefundResult, error)

	// QueryStatus fetches the provider-side status without mutating it.
	QueryStatus(ctx context.Context, token string) (*StatusResult, error)
}

// Error is returned when a provider call fails downstream or yields a reply
// that cannot be mapped to a canonical status.
type Error struct {
	Provider domain.Provider
	Op       string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Registry dispatches to the adapter registered for a provider. The provider
// enumeration is closed, so registration happens once at process start.
type Registry struct {
	adapters map[domain.Provider]Adapter
}

// NewRegistry creates a registry holding the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

// Get returns the adapter for the given provider.
func (r *Registry) Get(provider domain.Provider) (Adapter, bool) {
	a, ok := r.adapters[provider]
	return a, ok
}

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomToken returns n random characters from a base36 alphabet.
func randomToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf)
}
