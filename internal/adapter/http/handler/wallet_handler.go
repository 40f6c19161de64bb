package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet read endpoints.
type WalletHandler struct {
	historySvc ports.HistoryService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(historySvc ports.HistoryService) *WalletHandler {
	return &WalletHandler{historySvc: historySvc}
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	result, err := h.historySvc.GetBalance(c.Request.Context(), userID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		WalletID: result.WalletID.String(),
		Balance:  result.Balance.StringFixed(2),
	})
}

// GetHistory handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) GetHistory(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	entries, err := h.historySvc.GetHistory(c.Request.Context(), userID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.FromHistoryEntry(e))
	}

	response.OK(c, dto.HistoryResponse{
		Items: items,
		Total: len(items),
	})
}
