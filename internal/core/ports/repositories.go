package ports

import (
	"context"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Create inserts a user inside an open database transaction so the
	// user and its wallet commit or abort together.
	Create(ctx context.Context, tx pgx.Tx, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// GetByTaxID looks a user up by its normalized tax-id.
	GetByTaxID(ctx context.Context, taxID string) (*domain.User, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
}

// TransactionRepository defines persistence operations for ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// GetByIDWithParties fetches a transaction joined with the owning users
	// of its source and destination wallets.
	GetByIDWithParties(ctx context.Context, id uuid.UUID) (*domain.TransactionWithParties, error)
	// MarkReversed flips a COMPLETED transaction to REVERSED. Returns false
	// when the transaction was not in COMPLETED state, so a concurrent
	// reversal that won the race is detected instead of applied twice.
	MarkReversed(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	// ListByWallet returns every transaction where the wallet is source or
	// destination, most recent first.
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.TransactionWithParties, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
