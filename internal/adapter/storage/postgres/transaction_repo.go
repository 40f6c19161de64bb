package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `t.id, t.type, t.amount, t.status, t.description,
		t.source_wallet_id, t.destination_wallet_id, t.reversed_transaction_id,
		t.created_at, t.processed_at`

const partyJoin = `
		LEFT JOIN wallets sw ON sw.id = t.source_wallet_id
		LEFT JOIN users su ON su.id = sw.user_id
		LEFT JOIN wallets dw ON dw.id = t.destination_wallet_id
		LEFT JOIN users du ON du.id = dw.user_id`

// Create appends a new ledger entry within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, type, amount, status, description,
		source_wallet_id, destination_wallet_id, reversed_transaction_id, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.Type, t.Amount, t.Status, t.Description,
		t.SourceWalletID, t.DestinationWalletID, t.ReversedTransactionID,
		t.CreatedAt, t.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, type, amount, status, description,
		source_wallet_id, destination_wallet_id, reversed_transaction_id, created_at, processed_at
		FROM transactions WHERE id = $1`

	t := &domain.Transaction{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Type, &t.Amount, &t.Status, &t.Description,
		&t.SourceWalletID, &t.DestinationWalletID, &t.ReversedTransactionID,
		&t.CreatedAt, &t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// GetByIDWithParties fetches a transaction joined with the owning users of
// its source and destination wallets.
func (r *TransactionRepo) GetByIDWithParties(ctx context.Context, id uuid.UUID) (*domain.TransactionWithParties, error) {
	query := `SELECT ` + transactionColumns + `,
		su.id, su.name, du.id, du.name
		FROM transactions t` + partyJoin + `
		WHERE t.id = $1`

	t, err := scanTransactionWithParties(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction with parties: %w", err)
	}
	return t, nil
}

// MarkReversed flips a COMPLETED transaction to REVERSED within a database
// transaction. The status condition makes the flip race-safe: of two
// concurrent reversals only one sees an affected row.
func (r *TransactionRepo) MarkReversed(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	query := `UPDATE transactions SET status = $1, processed_at = $2
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, domain.TransactionStatusReversed, time.Now(), id, domain.TransactionStatusCompleted)
	if err != nil {
		return false, fmt.Errorf("mark transaction reversed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByWallet returns every transaction touching the wallet as source or
// destination, most recent first.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.TransactionWithParties, error) {
	query := `SELECT ` + transactionColumns + `,
		su.id, su.name, du.id, du.name
		FROM transactions t` + partyJoin + `
		WHERE t.source_wallet_id = $1 OR t.destination_wallet_id = $1
		ORDER BY t.created_at DESC`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.TransactionWithParties
	for rows.Next() {
		t, err := scanTransactionWithParties(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

func scanTransactionWithParties(row pgx.Row) (*domain.TransactionWithParties, error) {
	t := &domain.TransactionWithParties{}
	var srcUserID, dstUserID *uuid.UUID
	var srcName, dstName *string

	err := row.Scan(
		&t.ID, &t.Type, &t.Amount, &t.Status, &t.Description,
		&t.SourceWalletID, &t.DestinationWalletID, &t.ReversedTransactionID,
		&t.CreatedAt, &t.ProcessedAt,
		&srcUserID, &srcName, &dstUserID, &dstName,
	)
	if err != nil {
		return nil, err
	}

	if srcUserID != nil && srcName != nil {
		t.SourceOwner = &domain.Party{UserID: *srcUserID, Name: *srcName}
	}
	if dstUserID != nil && dstName != nil {
		t.DestinationOwner = &domain.Party{UserID: *dstUserID, Name: *dstName}
	}
	return t, nil
}
