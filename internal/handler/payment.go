package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"paygate/internal/domain"
	"paygate/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentRequest is the HTTP request body for initializing a payment.
type CreatePaymentRequest struct {
	Amount      float64         `json:"amount"`
	Currency    string          `json:"currency"`
	Provider    string          `json:"provider"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	ReturnURL   string          `json:"return_url"`
	WebhookURL  string          `json:"webhook_url"`
	Metadata    domain.Metadata `json:"metadata"`
}

// PaymentInitializationResponse is the HTTP response for a created payment.
type PaymentInitializationResponse struct {
	TransactionID string `json:"transaction_id"`
	Provider      string `json:"provider"`
	RedirectURL   string `json:"redirect_url"`
	Token         string `json:"token"`
	Message       string `json:"message"`
}

// PaymentResponse is the canonical HTTP view of a payment.
type PaymentResponse struct {
	ID            string          `json:"id"`
	Provider      string          `json:"provider"`
	Amount        float64         `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"`
	AuthCode      string          `json:"auth_code,omitempty"`
	Message       string          `json:"message"`
	Timestamp     time.Time       `json:"timestamp"`
	Metadata      domain.Metadata `json:"metadata,omitempty"`
}

// ConfirmPaymentRequest is the HTTP request body for confirming a payment.
type ConfirmPaymentRequest struct {
	TransactionID string `json:"transaction_id"`
	Token         string `json:"token"`
	Provider      string `json:"provider"`
}

// RefundPaymentRequest is the HTTP request body for refunding a payment.
type RefundPaymentRequest struct {
	Provider string  `json:"provider"`
	Amount   float64 `json:"amount"`
}

// CallbackRequest is the HTTP request body for provider webhooks.
type CallbackRequest struct {
	Provider      string          `json:"provider"`
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	AuthCode      string          `json:"auth_code"`
	Amount        float64         `json:"amount"`
	Message       string          `json:"message"`
	Metadata      domain.Metadata `json:"metadata"`
}

// CallbackResponse acknowledges a processed webhook.
type CallbackResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PaymentID string `json:"payment_id"`
}

// StatsResponse reports aggregate payment figures.
type StatsResponse struct {
	TotalCount    int     `json:"total_count"`
	CapturedCount int     `json:"captured_count"`
	PendingCount  int     `json:"pending_count"`
	TotalAmount   float64 `json:"total_amount"`
}

// InitializePayment handles POST /v1/payments/initialize
func (h *PaymentHandler) InitializePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "amount must be positive"})
		return
	}

	if req.Provider == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "provider is required"})
		return
	}

	result, err := h.paymentService.CreatePayment(c.Request.Context(), service.CreatePaymentRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Provider:    req.Provider,
		Reference:   req.Reference,
		Description: req.Description,
		Email:       req.Email,
		Phone:       req.Phone,
		ReturnURL:   req.ReturnURL,
		WebhookURL:  req.WebhookURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, PaymentInitializationResponse{
		TransactionID: result.TransactionID,
		Provider:      string(result.Provider),
		RedirectURL:   result.RedirectURL,
		Token:         result.Token,
		Message:       result.Message,
	})
}

// ConfirmPayment handles POST /v1/payments/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	view, err := h.paymentService.ConfirmPayment(c.Request.Context(), req.TransactionID, req.Token, req.Provider)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(view))
}

// GetPaymentStatus handles GET /v1/payments/status/:transactionId?provider=
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	transactionID := c.Param("transactionId")
	providerName := c.Query("provider")

	view, err := h.paymentService.GetPaymentStatus(c.Request.Context(), transactionID, providerName)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(view))
}

// GetPaymentByReference handles GET /v1/payments/reference/:reference
func (h *PaymentHandler) GetPaymentByReference(c *gin.Context) {
	view, err := h.paymentService.GetPaymentByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(view))
}

// RefundPayment handles POST /v1/payments/refund/:transactionId
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	transactionID := c.Param("transactionId")

	var req RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	view, err := h.paymentService.RefundPayment(c.Request.Context(), transactionID, req.Provider, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(view))
}

// HandleCallback handles POST /v1/payments/webhook/callback
func (h *PaymentHandler) HandleCallback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.paymentService.HandleCallback(c.Request.Context(), service.CallbackRequest{
		Provider:      req.Provider,
		TransactionID: req.TransactionID,
		Status:        req.Status,
		AuthCode:      req.AuthCode,
		Amount:        req.Amount,
		Message:       req.Message,
		Metadata:      req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CallbackResponse{
		Success:   result.Success,
		Message:   result.Message,
		PaymentID: result.PaymentID,
	})
}

// ListPayments handles GET /v1/payments/list?status=&limit=
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	views, err := h.paymentService.ListPayments(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]PaymentResponse, 0, len(views))
	for _, view := range views {
		responses = append(responses, toPaymentResponse(view))
	}

	respondJSON(c, http.StatusOK, responses)
}

// GetStats handles GET /v1/payments/stats
func (h *PaymentHandler) GetStats(c *gin.Context) {
	stats, err := h.paymentService.PaymentStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, StatsResponse{
		TotalCount:    stats.TotalCount,
		CapturedCount: stats.CapturedCount,
		PendingCount:  stats.PendingCount,
		TotalAmount:   stats.TotalAmount,
	})
}

func toPaymentResponse(view *service.PaymentView) PaymentResponse {
	return PaymentResponse{
		ID:            view.ID,
		Provider:      string(view.Provider),
		Amount:        view.Amount,
		Currency:      view.Currency,
		Status:        string(view.Status),
		TransactionID: view.TransactionID,
		AuthCode:      view.AuthCode,
		Message:       view.Message,
		Timestamp:     view.Timestamp,
		Metadata:      view.Metadata,
	}
}
