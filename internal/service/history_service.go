package service

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// HistoryServiceImpl implements ports.HistoryService: read-only projections
// of the ledger. No locking beyond a plain read.
type HistoryServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
}

// NewHistoryService creates a new HistoryServiceImpl.
func NewHistoryService(walletRepo ports.WalletRepository, txRepo ports.TransactionRepository) *HistoryServiceImpl {
	return &HistoryServiceImpl{walletRepo: walletRepo, txRepo: txRepo}
}

// GetBalance returns the current balance of the user's wallet.
func (s *HistoryServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (*ports.BalanceResult, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	return &ports.BalanceResult{WalletID: wallet.ID, Balance: wallet.Balance}, nil
}

// GetHistory returns the user's transactions, most recent first. Direction
// is derived from which side the user's wallet is on; the counterparty is
// surfaced for transfers only.
func (s *HistoryServiceImpl) GetHistory(ctx context.Context, userID uuid.UUID) ([]domain.HistoryEntry, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	txns, err := s.txRepo.ListByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}

	entries := make([]domain.HistoryEntry, 0, len(txns))
	for _, t := range txns {
		entry := domain.HistoryEntry{
			Transaction: t.Transaction,
			Direction:   domain.DirectionSent,
		}
		if t.DestinationWalletID != nil && *t.DestinationWalletID == wallet.ID {
			entry.Direction = domain.DirectionReceived
		}

		if t.Type == domain.TransactionTypeTransfer {
			if entry.Direction == domain.DirectionReceived {
				entry.OtherParty = t.SourceOwner
			} else {
				entry.OtherParty = t.DestinationOwner
			}
		}

		entries = append(entries, entry)
	}
	return entries, nil
}
