package service

import "errors"

var (
	// ErrInvalidAmount is returned when an amount is not positive or has
	// more than two fractional digits.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidCurrency is returned when the currency is not a 3-letter code.
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrUnknownProvider is returned when the provider names no known adapter.
	ErrUnknownProvider = errors.New("unknown payment provider")

	// ErrInvalidTransactionID is returned when the transaction id is empty.
	ErrInvalidTransactionID = errors.New("invalid transaction id")

	// ErrInvalidReference is returned when the caller reference is empty.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrMissingToken is returned when a confirmation token is empty.
	ErrMissingToken = errors.New("missing provider token")

	// ErrInvalidStatus is returned when a status value names no canonical status.
	ErrInvalidStatus = errors.New("invalid payment status")

	// ErrPaymentNotRefundable is returned when refunding a payment that is
	// not in captured state.
	ErrPaymentNotRefundable = errors.New("only captured payments can be refunded")

	// ErrPaymentNotConfirmable is returned when confirming a payment that is
	// not in authorized state.
	ErrPaymentNotConfirmable = errors.New("payment cannot be confirmed in current state")

	// ErrPaymentConflict is returned when a concurrent operation on the same
	// payment won the race, either for the per-payment lock or the guarded
	// store update.
	ErrPaymentConflict = errors.New("concurrent payment operation in progress")
)
