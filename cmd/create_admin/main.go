package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"learnjs_backend/internal/config"
	"learnjs_backend/internal/db"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/service"
)

// create_admin creates an administrator or promotes and resets an existing
// account. The password comes from ADMIN_PASSWORD so it stays out of shell history.
func main() {
	name := flag.String("name", "Admin", "display name for a new account")
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	flag.Parse()

	password := os.Getenv("ADMIN_PASSWORD")
	if *email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "usage: ADMIN_PASSWORD=... create_admin -email admin@example.com [-name Admin]")
		os.Exit(2)
	}

	logger.Init(os.Getenv("LOG_LEVEL"), false)
	cfg := config.Load()
	if cfg.Storage == config.StorageMemory {
		logger.Fatal("create_admin needs STORAGE=postgres")
	}
	service.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	ctx := context.Background()
	store, err := db.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open storage", "error", err)
	}
	defer store.Close()

	ledger := service.NewLedgerService(store)
	referrals := service.NewReferralService(store, ledger, cfg.PublicURL)
	accounts := service.NewAccountService(store, ledger, referrals, service.NewAuditService(store))

	u, err := accounts.EnsureAdmin(ctx, *name, *email, password)
	if err != nil {
		logger.Fatal("create admin failed", "error", err)
	}

	token, err := service.GenerateJWT(u.ID, true)
	if err != nil {
		logger.Fatal("failed to generate token", "error", err)
	}
	fmt.Printf("admin id=%d email=%s\ntoken=%s\n", u.ID, u.Email, token)
}
