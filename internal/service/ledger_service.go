package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const idempotencyTTL = 24 * time.Hour

// LedgerServiceImpl implements ports.LedgerService. It is the only writer of
// wallet balances: every mutating operation runs as one database transaction
// with the affected wallet rows locked, so concurrent operations on the same
// wallet serialize and no read-modify-write is based on a stale balance.
type LedgerServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	idempCache ports.IdempotencyCache
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	idempCache ports.IdempotencyCache,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		idempCache: idempCache,
		log:        log,
	}
}

// Deposit credits the actor's wallet unconditionally. A deposit compensates a
// negative balance left behind by a prior deposit reversal.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*ports.DepositResult, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	idempKey := buildIdempotencyKey("deposit", req.UserID, req.IdempotencyKey)
	if cached := s.cachedResult(ctx, idempKey); cached != nil {
		result := &ports.DepositResult{}
		if err := json.Unmarshal(cached, result); err == nil {
			return result, nil
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	change := domain.ApplyDeposit(wallet.Balance, req.Amount)

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, change.New); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:                  uuid.New(),
		Type:                domain.TransactionTypeDeposit,
		Amount:              req.Amount,
		Status:              domain.TransactionStatusCompleted,
		Description:         req.Description,
		DestinationWalletID: &wallet.ID,
		CreatedAt:           now,
		ProcessedAt:         &now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	result := &ports.DepositResult{
		Transaction:     txn,
		PreviousBalance: change.Previous,
		NewBalance:      change.New,
	}
	s.cacheResult(ctx, idempKey, result)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("user_id", req.UserID.String()).
		Str("amount", req.Amount.StringFixed(2)).
		Msg("deposit completed")

	return result, nil
}

// Transfer moves funds from the actor's wallet to the wallet of the user
// addressed by tax-id. Both wallets are re-fetched and locked inside the
// database transaction, in wallet-id order, so the pre-check reads can never
// feed a stale balance into the debit and two opposite-direction transfers
// cannot deadlock.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	idempKey := buildIdempotencyKey("transfer", req.UserID, req.IdempotencyKey)
	if cached := s.cachedResult(ctx, idempKey); cached != nil {
		result := &ports.TransferResult{}
		if err := json.Unmarshal(cached, result); err == nil {
			return result, nil
		}
	}

	// Pre-checks outside the atomic unit: resolve both parties.
	actor, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find actor: %w", err))
	}
	if actor == nil {
		return nil, apperror.ErrNotFound("user")
	}

	recipientTaxID := domain.NormalizeTaxID(req.RecipientTaxID)
	if !domain.ValidTaxID(recipientTaxID) {
		return nil, apperror.ErrInvalidTaxID()
	}
	if recipientTaxID == actor.TaxID {
		return nil, apperror.ErrSelfTransfer()
	}

	recipient, err := s.userRepo.GetByTaxID(ctx, recipientTaxID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find recipient: %w", err))
	}
	if recipient == nil {
		return nil, apperror.ErrNotFound("recipient")
	}

	sourceWallet, err := s.walletRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find source wallet: %w", err))
	}
	if sourceWallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	destWallet, err := s.walletRepo.GetByUserID(ctx, recipient.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find recipient wallet: %w", err))
	}
	if destWallet == nil {
		return nil, apperror.ErrNotFound("recipient wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Re-fetch with locks inside the transaction; the pre-check reads above
	// may be stale by now.
	source, dest, err := s.lockWalletPair(ctx, dbTx, sourceWallet.ID, destWallet.ID)
	if err != nil {
		return nil, err
	}

	debit, err := domain.ApplyTransferDebit(source.Balance, req.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return nil, apperror.ErrInsufficientFunds(source.Balance)
		}
		return nil, apperror.InternalError(err)
	}
	credit := domain.ApplyTransferCredit(dest.Balance, req.Amount)

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, source.ID, debit.New); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit source: %w", err))
	}
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, dest.ID, credit.New); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit destination: %w", err))
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:                  uuid.New(),
		Type:                domain.TransactionTypeTransfer,
		Amount:              req.Amount,
		Status:              domain.TransactionStatusCompleted,
		Description:         req.Description,
		SourceWalletID:      &source.ID,
		DestinationWalletID: &dest.ID,
		CreatedAt:           now,
		ProcessedAt:         &now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	result := &ports.TransferResult{
		Transaction:     txn,
		PreviousBalance: debit.Previous,
		NewBalance:      debit.New,
		Recipient:       domain.Party{UserID: recipient.ID, Name: recipient.Name},
	}
	s.cacheResult(ctx, idempKey, result)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("from", req.UserID.String()).
		Str("to", recipient.ID.String()).
		Str("amount", req.Amount.StringFixed(2)).
		Msg("transfer completed")

	return result, nil
}

// Reverse undoes a prior DEPOSIT or TRANSFER, creating a compensating
// REVERSAL entry linked back to the original. Only a participant of the
// original transaction may reverse it, and only once.
func (s *LedgerServiceImpl) Reverse(ctx context.Context, req ports.ReversalRequest) (*ports.ReversalResult, error) {
	original, err := s.txRepo.GetByIDWithParties(ctx, req.TransactionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find transaction: %w", err))
	}
	if original == nil {
		return nil, apperror.ErrNotFound("transaction")
	}

	if !s.isParticipant(original, req.UserID) {
		return nil, apperror.ErrReversalForbidden()
	}

	if original.Status == domain.TransactionStatusReversed {
		return nil, apperror.ErrAlreadyReversed()
	}
	if original.Type == domain.TransactionTypeReversal {
		return nil, apperror.ErrNotReversible()
	}
	if original.Status != domain.TransactionStatusCompleted {
		return nil, apperror.ErrInvalidTransactionState(fmt.Sprintf("status %s is not reversible", original.Status))
	}
	if original.DestinationWalletID == nil {
		return nil, apperror.ErrInvalidTransactionState("missing destination wallet reference")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Claim the original first: of two concurrent reversals only one flips
	// the status, the other aborts here and rolls back.
	flipped, err := s.txRepo.MarkReversed(ctx, dbTx, original.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark original reversed: %w", err))
	}
	if !flipped {
		return nil, apperror.ErrAlreadyReversed()
	}

	var reversal *domain.Transaction
	var actorBalance decimal.Decimal

	switch original.Type {
	case domain.TransactionTypeDeposit:
		reversal, actorBalance, err = s.reverseDeposit(ctx, dbTx, original)
	case domain.TransactionTypeTransfer:
		reversal, actorBalance, err = s.reverseTransfer(ctx, dbTx, original, req.UserID)
	default:
		err = apperror.ErrInvalidTransactionState(fmt.Sprintf("unknown type %s", original.Type))
	}
	if err != nil {
		return nil, err
	}

	if err := s.txRepo.Create(ctx, dbTx, reversal); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create reversal: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("tx_id", reversal.ID.String()).
		Str("original_tx_id", original.ID.String()).
		Str("user_id", req.UserID.String()).
		Str("amount", original.Amount.StringFixed(2)).
		Msg("transaction reversed")

	return &ports.ReversalResult{
		Message:     "Transaction reversed successfully",
		Transaction: reversal,
		NewBalance:  actorBalance,
	}, nil
}

// reverseDeposit decrements the original destination wallet by the deposit
// amount. No sufficiency check is performed: this is documented behavior,
// asymmetric with transfer reversal, and may drive the wallet negative.
func (s *LedgerServiceImpl) reverseDeposit(ctx context.Context, dbTx pgx.Tx, original *domain.TransactionWithParties) (*domain.Transaction, decimal.Decimal, error) {
	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, *original.DestinationWalletID)
	if err != nil {
		return nil, decimal.Zero, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, decimal.Zero, apperror.ErrNotFound("wallet")
	}

	change := domain.ApplyDepositReversal(wallet.Balance, original.Amount)
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, change.New); err != nil {
		return nil, decimal.Zero, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	return s.newReversalTransaction(original, nil, original.DestinationWalletID), change.New, nil
}

// reverseTransfer moves the amount from the original destination back to the
// original source. The destination must still hold the funds.
func (s *LedgerServiceImpl) reverseTransfer(ctx context.Context, dbTx pgx.Tx, original *domain.TransactionWithParties, actorID uuid.UUID) (*domain.Transaction, decimal.Decimal, error) {
	if original.SourceWalletID == nil {
		return nil, decimal.Zero, apperror.ErrInvalidTransactionState("missing source wallet reference")
	}

	source, dest, err := s.lockWalletPair(ctx, dbTx, *original.SourceWalletID, *original.DestinationWalletID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	srcChange, dstChange, err := domain.ApplyTransferReversal(source.Balance, dest.Balance, original.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return nil, decimal.Zero, apperror.ErrReversalInsufficientFunds(dest.Balance)
		}
		return nil, decimal.Zero, apperror.InternalError(err)
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, source.ID, srcChange.New); err != nil {
		return nil, decimal.Zero, apperror.InternalError(fmt.Errorf("credit source: %w", err))
	}
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, dest.ID, dstChange.New); err != nil {
		return nil, decimal.Zero, apperror.InternalError(fmt.Errorf("debit destination: %w", err))
	}

	// The reported balance is the acting user's own wallet, whichever side
	// of the original transfer they were on.
	actorBalance := srcChange.New
	if original.DestinationOwner != nil && original.DestinationOwner.UserID == actorID {
		actorBalance = dstChange.New
	}

	// Money flows back: reversal source is the original destination.
	return s.newReversalTransaction(original, original.DestinationWalletID, original.SourceWalletID), actorBalance, nil
}

func (s *LedgerServiceImpl) newReversalTransaction(original *domain.TransactionWithParties, sourceID, destID *uuid.UUID) *domain.Transaction {
	now := time.Now().UTC()
	desc := fmt.Sprintf("Reversal of transaction %s", original.ID)
	return &domain.Transaction{
		ID:                    uuid.New(),
		Type:                  domain.TransactionTypeReversal,
		Amount:                original.Amount,
		Status:                domain.TransactionStatusCompleted,
		Description:           &desc,
		SourceWalletID:        sourceID,
		DestinationWalletID:   destID,
		ReversedTransactionID: &original.ID,
		CreatedAt:             now,
		ProcessedAt:           &now,
	}
}

// lockWalletPair acquires FOR UPDATE locks on two wallets in ascending
// wallet-id order, so two concurrent opposite-direction transfers cannot
// block each other forever.
func (s *LedgerServiceImpl) lockWalletPair(ctx context.Context, dbTx pgx.Tx, firstID, secondID uuid.UUID) (first, second *domain.Wallet, err error) {
	lockOrder := []uuid.UUID{firstID, secondID}
	if secondID.String() < firstID.String() {
		lockOrder[0], lockOrder[1] = secondID, firstID
	}

	locked := make(map[uuid.UUID]*domain.Wallet, 2)
	for _, id := range lockOrder {
		w, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if w == nil {
			return nil, nil, apperror.ErrNotFound("wallet")
		}
		locked[id] = w
	}
	return locked[firstID], locked[secondID], nil
}

func (s *LedgerServiceImpl) isParticipant(t *domain.TransactionWithParties, userID uuid.UUID) bool {
	if t.SourceOwner != nil && t.SourceOwner.UserID == userID {
		return true
	}
	if t.DestinationOwner != nil && t.DestinationOwner.UserID == userID {
		return true
	}
	return false
}

// cachedResult returns a previously cached response for the key, or nil.
func (s *LedgerServiceImpl) cachedResult(ctx context.Context, key string) []byte {
	if key == "" || s.idempCache == nil {
		return nil
	}
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency check failed, proceeding without it")
		return nil
	}
	return cached
}

// cacheResult stores a response for replay. Best-effort: a cache failure
// never fails the committed operation.
func (s *LedgerServiceImpl) cacheResult(ctx context.Context, key string, result any) {
	if key == "" || s.idempCache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.idempCache.Set(ctx, key, data, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotent response")
	}
}

func buildIdempotencyKey(op string, userID uuid.UUID, key string) string {
	if key == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s", op, userID, key)
}
