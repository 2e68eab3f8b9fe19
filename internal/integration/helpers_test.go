package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"learnjs_backend/internal/db"
	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/repository"
	"learnjs_backend/internal/service"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type pgEnv struct {
	ctx       context.Context
	store     repository.Store
	ledger    *service.LedgerService
	gate      *service.LevelGate
	referrals *service.ReferralService
	accounts  *service.AccountService
	reconcile *service.ReconcileService
}

// openPostgres skips the test unless DATABASE_URL is set.
func openPostgres(t *testing.T) *pgEnv {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}
	store := repository.NewPostgresStore(pool)
	t.Cleanup(store.Close)

	service.InitJWT("integration-secret", time.Hour)
	e := &pgEnv{ctx: ctx, store: store}
	e.ledger = service.NewLedgerService(store)
	e.gate = service.NewLevelGate(store, e.ledger)
	e.referrals = service.NewReferralService(store, e.ledger, "http://localhost")
	e.accounts = service.NewAccountService(store, e.ledger, e.referrals, service.NewAuditService(store))
	e.accounts.SetHashCost(bcrypt.MinCost)
	e.reconcile = service.NewReconcileService(store)
	return e
}

// register creates an account with a unique email so runs can share a database.
func (e *pgEnv) register(t *testing.T, code string) *service.AuthResult {
	t.Helper()
	res, err := e.accounts.Register(e.ctx, service.RegisterInput{
		Name:         "Integration",
		Email:        "it-" + uuid.NewString()[:12] + "@example.com",
		Password:     "password123",
		ReferralCode: code,
	}, service.RequestInfo{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return res
}

// grant moves coins through the ledger so reconciliation stays clean.
func (e *pgEnv) grant(t *testing.T, userID, amount int64) {
	t.Helper()
	if _, err := e.ledger.Credit(e.ctx, userID, amount, domain.TransactionPurchase, "test grant"); err != nil {
		t.Fatalf("credit: %v", err)
	}
}

func (e *pgEnv) level(t *testing.T, n int) *domain.Level {
	t.Helper()
	l, err := e.store.Repos().Levels.GetByNumber(e.ctx, n)
	if err == nil {
		return l
	}
	l = &domain.Level{Number: n, Title: "Integration level", IsActive: true}
	if err := l.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := e.store.Repos().Levels.Upsert(e.ctx, l); err != nil {
		t.Fatalf("upsert level: %v", err)
	}
	return l
}
