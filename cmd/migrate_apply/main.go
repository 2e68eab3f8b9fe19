package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"learnjs_backend/internal/db"
	"learnjs_backend/internal/logger"

	"github.com/joho/godotenv"
)

// migrate_apply lists pending migrations, or applies them with -apply.
func main() {
	apply := flag.Bool("apply", false, "apply pending migrations")
	flag.Parse()

	_ = godotenv.Load()
	logger.Init(os.Getenv("LOG_LEVEL"), false)

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, dsn)
	if err != nil {
		logger.Fatal("failed to connect", "error", err)
	}
	defer pool.Close()

	pending, err := db.PendingMigrations(ctx, pool)
	if err != nil {
		logger.Fatal("failed to read migrations", "error", err)
	}
	if len(pending) == 0 {
		fmt.Println("no pending migrations")
		return
	}
	for _, name := range pending {
		fmt.Println(name)
	}
	if !*apply {
		return
	}

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("migration failed", "error", err)
	}
	fmt.Printf("applied %d migrations\n", len(pending))
}
