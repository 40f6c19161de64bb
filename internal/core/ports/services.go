package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
}

// IdempotencyCache is a best-effort response cache keyed by the client's
// Idempotency-Key header. A miss or cache failure never blocks an operation.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// LedgerService is the transaction engine: the only writer of wallet
// balances. Every operation is one atomic unit of work against the store.
type LedgerService interface {
	Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	Reverse(ctx context.Context, req ReversalRequest) (*ReversalResult, error)
}

// DepositRequest holds validated input for a deposit. IdempotencyKey is
// optional; when set, a repeated request returns the first result instead of
// depositing twice.
type DepositRequest struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	Description    *string
	IdempotencyKey string
}

// DepositResult reports the completed deposit.
type DepositResult struct {
	Transaction     *domain.Transaction
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
}

// TransferRequest holds validated input for a peer-to-peer transfer.
// RecipientTaxID may still contain formatting characters; the engine
// normalizes it.
type TransferRequest struct {
	UserID         uuid.UUID
	RecipientTaxID string
	Amount         decimal.Decimal
	Description    *string
	IdempotencyKey string
}

// TransferResult reports the completed transfer from the sender's view.
type TransferResult struct {
	Transaction     *domain.Transaction
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	Recipient       domain.Party
}

// ReversalRequest holds validated input for reversing a prior transaction.
type ReversalRequest struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
}

// ReversalResult reports the compensating transaction. NewBalance is always
// the acting user's own wallet balance after the reversal, regardless of
// which side of the original transaction they were on.
type ReversalResult struct {
	Message     string
	Transaction *domain.Transaction
	NewBalance  decimal.Decimal
}

// HistoryService provides read-only projections of the ledger.
type HistoryService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceResult, error)
	GetHistory(ctx context.Context, userID uuid.UUID) ([]domain.HistoryEntry, error)
}

// BalanceResult is the current balance of a user's wallet.
type BalanceResult struct {
	WalletID uuid.UUID
	Balance  decimal.Decimal
}

// AuthService defines registration and login.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	Login(ctx context.Context, taxID, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for user registration.
type RegisterRequest struct {
	Name     string
	TaxID    string
	Password string
}

// RegisterResult holds the newly created user and wallet ids.
type RegisterResult struct {
	UserID   uuid.UUID
	WalletID uuid.UUID
}
