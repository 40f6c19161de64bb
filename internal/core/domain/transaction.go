package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypeReversal TransactionType = "REVERSAL"
)

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusReversed  TransactionStatus = "REVERSED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is an immutable ledger entry. Records are never deleted; the
// only permitted mutation is the COMPLETED -> REVERSED status transition.
type Transaction struct {
	ID                    uuid.UUID         `json:"id"`
	Type                  TransactionType   `json:"type"`
	Amount                decimal.Decimal   `json:"amount"`
	Status                TransactionStatus `json:"status"`
	Description           *string           `json:"description,omitempty"`
	SourceWalletID        *uuid.UUID        `json:"source_wallet_id,omitempty"`
	DestinationWalletID   *uuid.UUID        `json:"destination_wallet_id,omitempty"`
	ReversedTransactionID *uuid.UUID        `json:"reversed_transaction_id,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	ProcessedAt           *time.Time        `json:"processed_at,omitempty"`
}

// IsReversible returns true if the transaction can still be reversed.
// A reversal can never itself be reversed, and a transaction is reversed
// at most once.
func (t *Transaction) IsReversible() bool {
	return t.Type != TransactionTypeReversal &&
		t.Status == TransactionStatusCompleted
}

// TransactionWithParties is a ledger entry joined with the owning users of
// its source and destination wallets, as needed for reversal authorization
// and history counterparty derivation.
type TransactionWithParties struct {
	Transaction
	SourceOwner      *Party `json:"source_owner,omitempty"`
	DestinationOwner *Party `json:"destination_owner,omitempty"`
}

// Party is the minimal public identity of a wallet owner.
type Party struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
}

// TransactionDirection says whether a wallet sent or received funds.
type TransactionDirection string

const (
	DirectionSent     TransactionDirection = "sent"
	DirectionReceived TransactionDirection = "received"
)

// HistoryEntry is a ledger entry projected for one wallet's point of view.
type HistoryEntry struct {
	Transaction
	Direction  TransactionDirection `json:"direction"`
	OtherParty *Party               `json:"other_party,omitempty"`
}
