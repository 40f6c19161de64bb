package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HeaderIdempotencyKey is the optional client-supplied key that makes a
// deposit or transfer safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

// TransactionHandler handles money-moving endpoints.
type TransactionHandler struct {
	ledgerSvc ports.LedgerService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledgerSvc ports.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledgerSvc: ledgerSvc}
}

// Deposit handles POST /api/v1/transactions/deposit.
func (h *TransactionHandler) Deposit(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	result, err := h.ledgerSvc.Deposit(c.Request.Context(), ports.DepositRequest{
		UserID:         userID.(uuid.UUID),
		Amount:         amount,
		Description:    req.Description,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.DepositResponse{
		Transaction:     dto.FromTransaction(result.Transaction),
		PreviousBalance: result.PreviousBalance.StringFixed(2),
		NewBalance:      result.NewBalance.StringFixed(2),
	})
}

// Transfer handles POST /api/v1/transactions/transfer.
func (h *TransactionHandler) Transfer(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	result, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		UserID:         userID.(uuid.UUID),
		RecipientTaxID: req.RecipientTaxID,
		Amount:         amount,
		Description:    req.Description,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.TransferResponse{
		Transaction:     dto.FromTransaction(result.Transaction),
		PreviousBalance: result.PreviousBalance.StringFixed(2),
		NewBalance:      result.NewBalance.StringFixed(2),
		Recipient: dto.PartyResponse{
			UserID: result.Recipient.UserID.String(),
			Name:   result.Recipient.Name,
		},
	})
}

// Reverse handles POST /api/v1/transactions/:id/reverse.
func (h *TransactionHandler) Reverse(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	result, err := h.ledgerSvc.Reverse(c.Request.Context(), ports.ReversalRequest{
		UserID:        userID.(uuid.UUID),
		TransactionID: txID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ReversalResponse{
		Message:     result.Message,
		Transaction: dto.FromTransaction(result.Transaction),
		NewBalance:  result.NewBalance.StringFixed(2),
	})
}
