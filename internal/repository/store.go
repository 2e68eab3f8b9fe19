package repository

import (
	"context"
	"errors"

	"learnjs_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// can run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Users interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)
	// AddCoins applies delta only if the balance stays non-negative and
	// returns the new balance, or domain.ErrInsufficientFunds.
	AddCoins(ctx context.Context, id int64, delta int64) (int64, error)
	// UnlockLevel stores level n and raises current_level to at least n.
	UnlockLevel(ctx context.Context, id int64, n int) (*domain.User, error)
	// SetReferredBy records the referrer once. It returns false if one was already set.
	SetReferredBy(ctx context.Context, id, referrerID int64) (bool, error)
	IncrementReferrals(ctx context.Context, id int64) error
	UpdateName(ctx context.Context, id int64, name string) error
	SetAdmin(ctx context.Context, id int64, isAdmin bool) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	Touch(ctx context.Context, id int64) error
	List(ctx context.Context, search string, limit, offset int) ([]*domain.User, int, error)
	Recent(ctx context.Context, limit int) ([]*domain.User, error)
	Count(ctx context.Context) (int, error)
	TotalCoins(ctx context.Context) (int64, error)
	Balances(ctx context.Context) (map[int64]int64, error)
}

type Levels interface {
	// Upsert inserts or replaces the level with the same number.
	Upsert(ctx context.Context, l *domain.Level) error
	GetByID(ctx context.Context, id int64) (*domain.Level, error)
	GetByNumber(ctx context.Context, n int) (*domain.Level, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Level, error)
	ListByNumbers(ctx context.Context, numbers []int) ([]*domain.Level, error)
}

type Progresses interface {
	Get(ctx context.Context, userID, levelID int64) (*domain.Progress, error)
	// GetOrCreateForUpdate returns the locked progress row, inserting it if absent.
	GetOrCreateForUpdate(ctx context.Context, userID int64, level *domain.Level) (*domain.Progress, error)
	Save(ctx context.Context, p *domain.Progress) error
	ListByUser(ctx context.Context, userID int64) ([]*domain.Progress, error)
	LevelStats(ctx context.Context) ([]domain.LevelStat, error)
}

type Transactions interface {
	Create(ctx context.Context, t *domain.Transaction) error
	History(ctx context.Context, userID int64, limit int) ([]domain.TransactionView, error)
	Count(ctx context.Context) (int, error)
	// NetByUser sums every user's credits minus debits.
	NetByUser(ctx context.Context) (map[int64]int64, error)
}

type Referrals interface {
	// Create fails with domain.ErrAlreadyProcessed on a duplicate pair or referred user.
	Create(ctx context.Context, r *domain.Referral) error
	Exists(ctx context.Context, referrerID, referredID int64) (bool, error)
	ListByReferrer(ctx context.Context, referrerID int64) ([]*domain.Referral, error)
	Stats(ctx context.Context, referrerID int64) (domain.ReferralStats, error)
}

type AuditLogs interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error)
	GetByCategory(ctx context.Context, category string, limit int) ([]*domain.AuditLog, error)
	GetRecent(ctx context.Context, limit int) ([]*domain.AuditLog, error)
}

// Repos groups the repositories bound to one connection or transaction.
type Repos struct {
	Users        Users
	Levels       Levels
	Progress     Progresses
	Transactions Transactions
	Referrals    Referrals
	Audit        AuditLogs
}

// Store is the persistence boundary used by the services.
type Store interface {
	Repos() *Repos
	// WithTx runs fn in one transaction; any error rolls everything back.
	WithTx(ctx context.Context, fn func(r *Repos) error) error
	// WithSnapshot runs fn read-only against one consistent snapshot.
	WithSnapshot(ctx context.Context, fn func(r *Repos) error) error
	Ping(ctx context.Context) error
	Close()
}

type PostgresStore struct {
	pool  *pgxpool.Pool
	repos *Repos
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, repos: newRepos(pool)}
}

func newRepos(db DBTX) *Repos {
	return &Repos{
		Users:        NewUserRepository(db),
		Levels:       NewLevelRepository(db),
		Progress:     NewProgressRepository(db),
		Transactions: NewTransactionRepository(db),
		Referrals:    NewReferralRepository(db),
		Audit:        NewAuditRepository(db),
	}
}

func (s *PostgresStore) Repos() *Repos {
	return s.repos
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(r *Repos) error) error {
	return s.runTx(ctx, pgx.TxOptions{}, fn)
}

// SnapshotTxOptions makes every statement of a read see the same committed state.
var SnapshotTxOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

func (s *PostgresStore) WithSnapshot(ctx context.Context, fn func(r *Repos) error) error {
	return s.runTx(ctx, SnapshotTxOptions, fn)
}

func (s *PostgresStore) runTx(ctx context.Context, opts pgx.TxOptions, fn func(r *Repos) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newRepos(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func notFound(err, target error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return target
	}
	return err
}
