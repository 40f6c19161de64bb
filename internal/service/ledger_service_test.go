package service

import (
	"context"
	"encoding/json"
	"testing"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type ledgerTestDeps struct {
	svc        *LedgerServiceImpl
	userRepo   *mocks.MockUserRepository
	walletRepo *mocks.MockWalletRepository
	txRepo     *mocks.MockTransactionRepository
	transactor *mocks.MockDBTransactor
	idempCache *mocks.MockIdempotencyCache
	ctrl       *gomock.Controller
}

func setupLedgerService(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		userRepo:   mocks.NewMockUserRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		idempCache: mocks.NewMockIdempotencyCache(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewLedgerService(
		d.userRepo, d.walletRepo, d.txRepo, d.transactor, d.idempCache, zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decimalEq matches a decimal.Decimal by value rather than representation,
// so 50 and 50.00 compare equal.
type decimalEq struct{ want decimal.Decimal }

func (m decimalEq) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalEq) String() string {
	return "decimal == " + m.want.String()
}

func requireAppErrorCode(t *testing.T, err error, code string) *apperror.AppError {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// ==================== Deposit Tests ====================

func TestLedgerService_Deposit_Success(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(&domain.Wallet{
		ID:      walletID,
		UserID:  userID,
		Balance: dec("10.00"),
	}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, decimalEq{dec("110.50")}).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Do(func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) {
		assert.Equal(t, domain.TransactionTypeDeposit, txn.Type)
		assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
		assert.True(t, txn.Amount.Equal(dec("100.50")))
		assert.Nil(t, txn.SourceWalletID)
		require.NotNil(t, txn.DestinationWalletID)
		assert.Equal(t, walletID, *txn.DestinationWalletID)
		assert.NotNil(t, txn.ProcessedAt)
	}).Return(nil)

	result, err := d.svc.Deposit(ctx, ports.DepositRequest{
		UserID: userID,
		Amount: dec("100.50"),
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.PreviousBalance.Equal(dec("10.00")))
	assert.True(t, result.NewBalance.Equal(dec("110.50")))
}

// A deposit into a wallet driven negative by a deposit reversal compensates
// the debt instead of failing.
func TestLedgerService_Deposit_CompensatesNegativeBalance(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(&domain.Wallet{
		ID:      walletID,
		UserID:  userID,
		Balance: dec("-50.00"),
	}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, decimalEq{dec("50.00")}).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	result, err := d.svc.Deposit(ctx, ports.DepositRequest{
		UserID: userID,
		Amount: dec("100.00"),
	})
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(dec("50.00")))
}

func TestLedgerService_Deposit_InvalidAmount(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	for _, amount := range []string{"0", "-10", "1.005"} {
		_, err := d.svc.Deposit(context.Background(), ports.DepositRequest{
			UserID: uuid.New(),
			Amount: dec(amount),
		})
		requireAppErrorCode(t, err, "LED_003")
	}
}

func TestLedgerService_Deposit_WalletNotFound(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(nil, nil)

	_, err := d.svc.Deposit(ctx, ports.DepositRequest{UserID: userID, Amount: dec("10")})
	requireAppErrorCode(t, err, "LED_010")
}

func TestLedgerService_Deposit_IdempotentReplay(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	cached := &ports.DepositResult{
		Transaction: &domain.Transaction{
			ID:     uuid.New(),
			Type:   domain.TransactionTypeDeposit,
			Amount: dec("100.00"),
			Status: domain.TransactionStatusCompleted,
		},
		PreviousBalance: dec("0"),
		NewBalance:      dec("100.00"),
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	key := "deposit:" + userID.String() + ":req-001"
	d.idempCache.EXPECT().Get(ctx, key).Return(data, nil)

	// No Begin expected: the replayed request never reaches the database.
	result, err := d.svc.Deposit(ctx, ports.DepositRequest{
		UserID:         userID,
		Amount:         dec("100.00"),
		IdempotencyKey: "req-001",
	})
	require.NoError(t, err)
	assert.Equal(t, cached.Transaction.ID, result.Transaction.ID)
	assert.True(t, result.NewBalance.Equal(dec("100.00")))
}

// ==================== Transfer Tests ====================

type transferFixture struct {
	actorID     uuid.UUID
	recipientID uuid.UUID
	srcWalletID uuid.UUID
	dstWalletID uuid.UUID
	actor       *domain.User
	recipient   *domain.User
}

func newTransferFixture() transferFixture {
	f := transferFixture{
		actorID:     uuid.New(),
		recipientID: uuid.New(),
		srcWalletID: uuid.New(),
		dstWalletID: uuid.New(),
	}
	f.actor = &domain.User{ID: f.actorID, Name: "Alice", TaxID: "11144477735"}
	f.recipient = &domain.User{ID: f.recipientID, Name: "Bob", TaxID: "52998224725"}
	return f
}

func TestLedgerService_Transfer_Success(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	f := newTransferFixture()
	tx := &mockTx{}

	d.userRepo.EXPECT().GetByID(ctx, f.actorID).Return(f.actor, nil)
	d.userRepo.EXPECT().GetByTaxID(ctx, "52998224725").Return(f.recipient, nil)
	d.walletRepo.EXPECT().GetByUserID(ctx, f.actorID).Return(&domain.Wallet{ID: f.srcWalletID, UserID: f.actorID}, nil)
	d.walletRepo.EXPECT().GetByUserID(ctx, f.recipientID).Return(&domain.Wallet{ID: f.dstWalletID, UserID: f.recipientID}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, f.srcWalletID).Return(&domain.Wallet{
		ID: f.srcWalletID, UserID: f.actorID, Balance: dec("100.00"),
	}, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, f.dstWalletID).Return(&domain.Wallet{
		ID: f.dstWalletID, UserID: f.recipientID, Balance: dec("20.00"),
	}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, f.srcWalletID, decimalEq{dec("70.00")}).Return(nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, f.dstWalletID, decimalEq{dec("50.00")}).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Do(func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) {
		assert.Equal(t, domain.TransactionTypeTransfer, txn.Type)
		assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
		require.NotNil(t, txn.SourceWalletID)
		require.NotNil(t, txn.DestinationWalletID)
		assert.Equal(t, f.srcWalletID, *txn.SourceWalletID)
		assert.Equal(t, f.dstWalletID, *txn.DestinationWalletID)
	}).Return(nil)

	result, err := d.svc.Transfer(ctx, ports.TransferRequest{
		UserID:         f.actorID,
		RecipientTaxID: "529.982.247-25", // formatted input is accepted
		Amount:         dec("30.00"),
	})
	require.NoError(t, err)
	assert.True(t, result.PreviousBalance.Equal(dec("100.00")))
	assert.True(t, result.NewBalance.Equal(dec("70.00")))
	assert.Equal(t, f.recipientID, result.Recipient.UserID)
	assert.Equal(t, "Bob", result.Recipient.Name)
}

func TestLedgerService_Transfer_InsufficientFunds(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	f := newTransferFixture()
	tx := &mockTx{}

	d.userRepo.EXPECT().GetByID(ctx, f.actorID).Return(f.actor, nil)
	d.userRepo.EXPECT().GetByTaxID(ctx, "52998224725").Return(f.recipient, nil)
	d.walletRepo.EXPECT().GetByUserID(ctx, f.actorID).Return(&domain.Wallet{ID: f.srcWalletID, UserID: f.actorID}, nil)
	d.walletRepo.EXPECT().GetByUserID(ctx, f.recipientID).Return(&domain.Wallet{ID: f.dstWalletID, UserID: f.recipientID}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, f.srcWalletID).Return(&domain.Wallet{
		ID: f.srcWalletID, UserID: f.actorID, Balance: dec("10.00"),
	}, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, f.dstWalletID).Return(&domain.Wallet{
		ID: f.dstWalletID, UserID: f.recipientID, Balance: dec("0"),
	}, nil)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		UserID:         f.actorID,
		RecipientTaxID: "52998224725",
		Amount:         dec("30.00"),
	})
	appErr := requireAppErrorCode(t, err, "LED_001")
	assert.Contains(t, appErr.Message, "10.00")
}

func TestLedgerService_Transfer_SelfTransfer(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	f := newTransferFixture()

	d.userRepo.EXPECT().GetByID(ctx, f.actorID).Return(f.actor, nil)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		UserID:         f.actorID,
		RecipientTaxID: f.actor.TaxID,
		Amount:         dec("10.00"),
	})
	requireAppErrorCode(t, err, "LED_004")
}

func TestLedgerService_Transfer_InvalidTaxID(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	f := newTransferFixture()

	d.userRepo.EXPECT().GetByID(ctx, f.actorID).Return(f.actor, nil)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		UserID:         f.actorID,
		RecipientTaxID: "11111111111", // all same digit
		Amount:         dec("10.00"),
	})
	requireAppErrorCode(t, err, "LED_005")
}

func TestLedgerService_Transfer_RecipientNotFound(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	f := newTransferFixture()

	d.userRepo.EXPECT().GetByID(ctx, f.actorID).Return(f.actor, nil)
	d.userRepo.EXPECT().GetByTaxID(ctx, "52998224725").Return(nil, nil)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		UserID:         f.actorID,
		RecipientTaxID: "52998224725",
		Amount:         dec("10.00"),
	})
	requireAppErrorCode(t, err, "LED_010")
}

// ==================== Reverse Tests ====================

func TestLedgerService_Reverse_Deposit(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	origID := uuid.New()
	tx := &mockTx{}

	original := &domain.TransactionWithParties{
		Transaction: domain.Transaction{
			ID:                  origID,
			Type:                domain.TransactionTypeDeposit,
			Amount:              dec("100.50"),
			Status:              domain.TransactionStatusCompleted,
			DestinationWalletID: &walletID,
		},
		DestinationOwner: &domain.Party{UserID: userID, Name: "Alice"},
	}

	d.txRepo.EXPECT().GetByIDWithParties(ctx, origID).Return(original, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, walletID).Return(&domain.Wallet{
		ID: walletID, UserID: userID, Balance: dec("50.50"),
	}, nil)
	// Deposit reversals have no sufficiency check: the wallet goes negative.
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, decimalEq{dec("-50.00")}).Return(nil)
	d.txRepo.EXPECT().MarkReversed(ctx, tx, origID).Return(true, nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Do(func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) {
		assert.Equal(t, domain.TransactionTypeReversal, txn.Type)
		assert.Nil(t, txn.SourceWalletID)
		require.NotNil(t, txn.DestinationWalletID)
		assert.Equal(t, walletID, *txn.DestinationWalletID)
		require.NotNil(t, txn.ReversedTransactionID)
		assert.Equal(t, origID, *txn.ReversedTransactionID)
	}).Return(nil)

	result, err := d.svc.Reverse(ctx, ports.ReversalRequest{UserID: userID, TransactionID: origID})
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(dec("-50.00")))
}

func transferOriginal(origID uuid.UUID, srcWalletID, dstWalletID uuid.UUID, srcOwner, dstOwner domain.Party) *domain.TransactionWithParties {
	return &domain.TransactionWithParties{
		Transaction: domain.Transaction{
			ID:                  origID,
			Type:                domain.TransactionTypeTransfer,
			Amount:              dec("30.00"),
			Status:              domain.TransactionStatusCompleted,
			SourceWalletID:      &srcWalletID,
			DestinationWalletID: &dstWalletID,
		},
		SourceOwner:      &srcOwner,
		DestinationOwner: &dstOwner,
	}
}

func TestLedgerService_Reverse_Transfer_BySender(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	sender := domain.Party{UserID: uuid.New(), Name: "Alice"}
	receiver := domain.Party{UserID: uuid.New(), Name: "Bob"}
	srcWalletID := uuid.New()
	dstWalletID := uuid.New()
	origID := uuid.New()
	tx := &mockTx{}

	original := transferOriginal(origID, srcWalletID, dstWalletID, sender, receiver)

	d.txRepo.EXPECT().GetByIDWithParties(ctx, origID).Return(original, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, srcWalletID).Return(&domain.Wallet{
		ID: srcWalletID, UserID: sender.UserID, Balance: dec("70.00"),
	}, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, dstWalletID).Return(&domain.Wallet{
		ID: dstWalletID, UserID: receiver.UserID, Balance: dec("50.00"),
	}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, srcWalletID, decimalEq{dec("100.00")}).Return(nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, dstWalletID, decimalEq{dec("20.00")}).Return(nil)
	d.txRepo.EXPECT().MarkReversed(ctx, tx, origID).Return(true, nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Do(func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) {
		// Money flows back: reversal source is the original destination.
		require.NotNil(t, txn.SourceWalletID)
		require.NotNil(t, txn.DestinationWalletID)
		assert.Equal(t, dstWalletID, *txn.SourceWalletID)
		assert.Equal(t, srcWalletID, *txn.DestinationWalletID)
	}).Return(nil)

	result, err := d.svc.Reverse(ctx, ports.ReversalRequest{UserID: sender.UserID, TransactionID: origID})
	require.NoError(t, err)
	// The sender gets the funds back, so the reported balance is theirs.
	assert.True(t, result.NewBalance.Equal(dec("100.00")))
}

func TestLedgerService_Reverse_Transfer_ByReceiver(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	sender := domain.Party{UserID: uuid.New(), Name: "Alice"}
	receiver := domain.Party{UserID: uuid.New(), Name: "Bob"}
	srcWalletID := uuid.New()
	dstWalletID := uuid.New()
	origID := uuid.New()
	tx := &mockTx{}

	original := transferOriginal(origID, srcWalletID, dstWalletID, sender, receiver)

	d.txRepo.EXPECT().GetByIDWithParties(ctx, origID).Return(original, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, srcWalletID).Return(&domain.Wallet{
		ID: srcWalletID, UserID: sender.UserID, Balance: dec("70.00"),
	}, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, dstWalletID).Return(&domain.Wallet{
		ID: dstWalletID, UserID: receiver.UserID, Balance: dec("50.00"),
	}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, srcWalletID, decimalEq{dec("100.00")}).Return(nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, dstWalletID, decimalEq{dec("20.00")}).Return(nil)
	d.txRepo.EXPECT().MarkReversed(ctx, tx, origID).Return(true, nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	result, err := d.svc.Reverse(ctx, ports.ReversalRequest{UserID: receiver.UserID, TransactionID: origID})
	require.NoError(t, err)
	// The receiver gave the funds back, so the reported balance is theirs.
	assert.True(t, result.NewBalance.Equal(dec("20.00")))
}

func TestLedgerService_Reverse_Transfer_InsufficientFunds(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	sender := domain.Party{UserID: uuid.New(), Name: "Alice"}
	receiver := domain.Party{UserID: uuid.New(), Name: "Bob"}
	srcWalletID := uuid.New()
	dstWalletID := uuid.New()
	origID := uuid.New()
	tx := &mockTx{}

	original := transferOriginal(origID, srcWalletID, dstWalletID, sender, receiver)

	d.txRepo.EXPECT().GetByIDWithParties(ctx, origID).Return(original, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().MarkReversed(ctx, tx, origID).Return(true, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, srcWalletID).Return(&domain.Wallet{
		ID: srcWalletID, UserID: sender.UserID, Balance: dec("70.00"),
	}, nil)
	// The recipient already spent the money.
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, dstWalletID).Return(&domain.Wallet{
		ID: dstWalletID, UserID: receiver.UserID, Balance: dec("10.00"),
	}, nil)

	_, err := d.svc.Reverse(ctx, ports.ReversalRequest{UserID: sender.UserID, TransactionID: origID})
	appErr := requireAppErrorCode(t, err, "LED_002")
	assert.Contains(t, appErr.Message, "10.00")
}

func TestLedgerService_Reverse_AlreadyReversed(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	origID := uuid.New()

	d.txRepo.EXPECT().GetByIDWithParties(ctx, origID).Return(&domain.TransactionWithParties{
		Transaction: domain.Transaction{
			ID:                  origID,
			Type:                domain.TransactionTypeDeposit,
			Amount:              dec("100.00"),
			Status:              domain.TransactionStatusReversed,
			DestinationWalletID: &walletID,
		},
		DestinationOwner: &domain.Party{UserID: userID},
	}, nil)

	_, err := d.svc.Reverse(ctx, ports.ReversalRequest{UserID: userID, TransactionID: origID})
	requireAppErrorCode(t, err, "LED_006")
}

func TestLedgerService_Reverse_ReversalNotReversible(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	origID := uuid.New()

	d.txRepo.EXPECT().GetByIDWithParties(ctx, origID).Return(&domain.TransactionWithParties{
		Transaction: domain.Transaction{
			ID:                  origID,
			Type:                domain.TransactionTypeReversal,
			Amount:              dec("100.00"),
			Status:              domain.TransactionStatusCompleted,
			DestinationWalletID: &walletID,
		},
		DestinationOwner: &domain.Party{UserID: userID},
	}, nil)

	_, err := d.svc.Reverse(ctx, ports.ReversalRequest{UserID: userID, TransactionID: origID})
	requireAppErrorCode(t, err, "LED_007")
}

func TestLedgerService_Reverse_NonParticipantForbidden(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	origID := uuid.New()

	d.txRepo.EXPECT().GetByIDWithParties(ctx, origID).Return(&domain.TransactionWithParties{
		Transaction: domain.Transaction{
			ID:                  origID,
			Type:                domain.TransactionTypeDeposit,
			Amount:              dec("100.00"),
			Status:              domain.TransactionStatusCompleted,
			DestinationWalletID: &walletID,
		},
		DestinationOwner: &domain.Party{UserID: uuid.New()},
	}, nil)

	_, err := d.svc.Reverse(ctx, ports.ReversalRequest{UserID: uuid.New(), TransactionID: origID})
	requireAppErrorCode(t, err, "LED_008")
}

func TestLedgerService_Reverse_PendingNotReversible(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	origID := uuid.New()

	d.txRepo.EXPECT().GetByIDWithParties(ctx, origID).Return(&domain.TransactionWithParties{
		Transaction: domain.Transaction{
			ID:                  origID,
			Type:                domain.TransactionTypeDeposit,
			Amount:              dec("100.00"),
			Status:              domain.TransactionStatusPending,
			DestinationWalletID: &walletID,
		},
		DestinationOwner: &domain.Party{UserID: userID},
	}, nil)

	_, err := d.svc.Reverse(ctx, ports.ReversalRequest{UserID: userID, TransactionID: origID})
	requireAppErrorCode(t, err, "LED_009")
}

// A concurrent reversal that committed between the pre-check and the atomic
// unit loses the conditional status flip and aborts.
func TestLedgerService_Reverse_LostRace(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	origID := uuid.New()
	tx := &mockTx{}

	d.txRepo.EXPECT().GetByIDWithParties(ctx, origID).Return(&domain.TransactionWithParties{
		Transaction: domain.Transaction{
			ID:                  origID,
			Type:                domain.TransactionTypeDeposit,
			Amount:              dec("100.00"),
			Status:              domain.TransactionStatusCompleted,
			DestinationWalletID: &walletID,
		},
		DestinationOwner: &domain.Party{UserID: userID},
	}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().MarkReversed(ctx, tx, origID).Return(false, nil)

	_, err := d.svc.Reverse(ctx, ports.ReversalRequest{UserID: userID, TransactionID: origID})
	requireAppErrorCode(t, err, "LED_006")
}

func TestLedgerService_Reverse_NotFound(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	origID := uuid.New()

	d.txRepo.EXPECT().GetByIDWithParties(ctx, origID).Return(nil, nil)

	_, err := d.svc.Reverse(ctx, ports.ReversalRequest{UserID: uuid.New(), TransactionID: origID})
	requireAppErrorCode(t, err, "LED_010")
}
