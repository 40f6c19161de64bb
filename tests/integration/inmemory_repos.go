package integration

import (
	"context"
	"fmt"
	"sync"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, tx pgx.Tx, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.TaxID == u.TaxID {
			return fmt.Errorf("tax id already exists")
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) GetByTaxID(ctx context.Context, taxID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.TaxID == taxID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.UserID == userID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Balance = balance
	return nil
}

// --- In-Memory Transaction Repo ---

// inMemoryTransactionRepo keeps insertion order so "most recent first" is
// deterministic even when timestamps collide. It joins against the user and
// wallet repos to resolve parties, mirroring the SQL LEFT JOINs.
type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.Transaction
	order        []uuid.UUID
	userRepo     *inMemoryUserRepo
	walletRepo   *inMemoryWalletRepo
}

func newInMemoryTransactionRepo(userRepo *inMemoryUserRepo, walletRepo *inMemoryWalletRepo) *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{
		transactions: make(map[uuid.UUID]*domain.Transaction),
		userRepo:     userRepo,
		walletRepo:   walletRepo,
	}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.transactions[t.ID] = &cp
	r.order = append(r.order, t.ID)
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) GetByIDWithParties(ctx context.Context, id uuid.UUID) (*domain.TransactionWithParties, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil || t == nil {
		return nil, err
	}
	return r.withParties(ctx, t)
}

func (r *inMemoryTransactionRepo) MarkReversed(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok || t.Status != domain.TransactionStatusCompleted {
		return false, nil
	}
	t.Status = domain.TransactionStatusReversed
	return true, nil
}

func (r *inMemoryTransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.TransactionWithParties, error) {
	r.mu.RLock()
	ids := make([]uuid.UUID, len(r.order))
	copy(ids, r.order)
	r.mu.RUnlock()

	var result []domain.TransactionWithParties
	for i := len(ids) - 1; i >= 0; i-- {
		t, err := r.GetByID(ctx, ids[i])
		if err != nil || t == nil {
			continue
		}
		touches := (t.SourceWalletID != nil && *t.SourceWalletID == walletID) ||
			(t.DestinationWalletID != nil && *t.DestinationWalletID == walletID)
		if !touches {
			continue
		}
		tp, err := r.withParties(ctx, t)
		if err != nil {
			return nil, err
		}
		result = append(result, *tp)
	}
	return result, nil
}

func (r *inMemoryTransactionRepo) withParties(ctx context.Context, t *domain.Transaction) (*domain.TransactionWithParties, error) {
	tp := &domain.TransactionWithParties{Transaction: *t}
	if t.SourceWalletID != nil {
		if p, err := r.ownerOf(ctx, *t.SourceWalletID); err == nil {
			tp.SourceOwner = p
		}
	}
	if t.DestinationWalletID != nil {
		if p, err := r.ownerOf(ctx, *t.DestinationWalletID); err == nil {
			tp.DestinationOwner = p
		}
	}
	return tp, nil
}

func (r *inMemoryTransactionRepo) ownerOf(ctx context.Context, walletID uuid.UUID) (*domain.Party, error) {
	w, err := r.walletRepo.GetByIDForUpdate(ctx, nil, walletID)
	if err != nil || w == nil {
		return nil, err
	}
	u, err := r.userRepo.GetByID(ctx, w.UserID)
	if err != nil || u == nil {
		return nil, err
	}
	return &domain.Party{UserID: u.ID, Name: u.Name}, nil
}

// --- In-Memory Transactor ---

// serialTransactor emulates row-level locking with one global mutex: a
// transaction holds the lock from Begin until Commit or Rollback, so
// concurrent ledger operations serialize exactly as SELECT FOR UPDATE
// serializes them against PostgreSQL.
type serialTransactor struct {
	mu sync.Mutex
}

func newSerialTransactor() *serialTransactor {
	return &serialTransactor{}
}

func (t *serialTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &serialTx{release: t.mu.Unlock}, nil
}

// serialTx is a pgx.Tx that releases the transactor's lock exactly once,
// on whichever of Commit or Rollback comes first.
type serialTx struct {
	mu      sync.Mutex
	release func()
	done    bool
}

func (t *serialTx) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.done {
		t.done = true
		t.release()
	}
}

func (t *serialTx) Commit(ctx context.Context) error   { t.finish(); return nil }
func (t *serialTx) Rollback(ctx context.Context) error { t.finish(); return nil }

func (t *serialTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *serialTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serialTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serialTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serialTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serialTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serialTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serialTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serialTx) Conn() *pgx.Conn { return nil }
