package dto

import (
	"time"

	"wallet-ledger/internal/core/domain"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	TaxID    string `json:"tax_id" binding:"required,tax_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	TaxID    string `json:"tax_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID   string `json:"user_id"`
	WalletID string `json:"wallet_id"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// DepositRequest is the request body for a deposit. Amount is a decimal
// string ("100.50") so no precision is lost in JSON.
type DepositRequest struct {
	Amount      string  `json:"amount" binding:"required,money"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=255"`
}

// TransferRequest is the request body for a peer-to-peer transfer.
type TransferRequest struct {
	RecipientTaxID string  `json:"recipient_tax_id" binding:"required"`
	Amount         string  `json:"amount" binding:"required,money"`
	Description    *string `json:"description,omitempty" binding:"omitempty,max=255"`
}

// TransactionResponse is a ledger entry in API responses.
type TransactionResponse struct {
	ID                    string  `json:"id"`
	Type                  string  `json:"type"`
	Amount                string  `json:"amount"`
	Status                string  `json:"status"`
	Description           *string `json:"description,omitempty"`
	SourceWalletID        *string `json:"source_wallet_id,omitempty"`
	DestinationWalletID   *string `json:"destination_wallet_id,omitempty"`
	ReversedTransactionID *string `json:"reversed_transaction_id,omitempty"`
	CreatedAt             string  `json:"created_at"`
	ProcessedAt           *string `json:"processed_at,omitempty"`
}

// DepositResponse is the response body for a completed deposit.
type DepositResponse struct {
	Transaction     TransactionResponse `json:"transaction"`
	PreviousBalance string              `json:"previous_balance"`
	NewBalance      string              `json:"new_balance"`
}

// PartyResponse identifies a counterparty.
type PartyResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// TransferResponse is the response body for a completed transfer.
type TransferResponse struct {
	Transaction     TransactionResponse `json:"transaction"`
	PreviousBalance string              `json:"previous_balance"`
	NewBalance      string              `json:"new_balance"`
	Recipient       PartyResponse       `json:"recipient"`
}

// ReversalResponse is the response body for a completed reversal.
type ReversalResponse struct {
	Message     string              `json:"message"`
	Transaction TransactionResponse `json:"transaction"`
	NewBalance  string              `json:"new_balance"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  string `json:"balance"`
}

// HistoryEntryResponse is one row of a wallet's transaction history.
type HistoryEntryResponse struct {
	TransactionResponse
	Direction  string         `json:"direction"`
	OtherParty *PartyResponse `json:"other_party,omitempty"`
}

// HistoryResponse wraps the transaction history, most recent first.
type HistoryResponse struct {
	Items []HistoryEntryResponse `json:"items"`
	Total int                    `json:"total"`
}

// FromTransaction maps a domain transaction to its API shape. Amounts are
// surfaced as exact two-decimal strings.
func FromTransaction(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          t.ID.String(),
		Type:        string(t.Type),
		Amount:      t.Amount.StringFixed(2),
		Status:      string(t.Status),
		Description: t.Description,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.SourceWalletID != nil {
		s := t.SourceWalletID.String()
		resp.SourceWalletID = &s
	}
	if t.DestinationWalletID != nil {
		s := t.DestinationWalletID.String()
		resp.DestinationWalletID = &s
	}
	if t.ReversedTransactionID != nil {
		s := t.ReversedTransactionID.String()
		resp.ReversedTransactionID = &s
	}
	if t.ProcessedAt != nil {
		s := t.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}

// FromHistoryEntry maps a history projection to its API shape.
func FromHistoryEntry(e domain.HistoryEntry) HistoryEntryResponse {
	resp := HistoryEntryResponse{
		TransactionResponse: FromTransaction(&e.Transaction),
		Direction:           string(e.Direction),
	}
	if e.OtherParty != nil {
		resp.OtherParty = &PartyResponse{
			UserID: e.OtherParty.UserID.String(),
			Name:   e.OtherParty.Name,
		}
	}
	return resp
}
