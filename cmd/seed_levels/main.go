package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"learnjs_backend/internal/config"
	"learnjs_backend/internal/db"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/seed"
)

func main() {
	overwrite := flag.Bool("overwrite", false, "replace levels that already exist")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"), false)
	cfg := config.Load()
	if cfg.Storage == config.StorageMemory {
		logger.Fatal("seeding needs STORAGE=postgres")
	}

	ctx := context.Background()
	store, err := db.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open storage", "error", err)
	}
	defer store.Close()

	n, err := seed.Seed(ctx, store, *overwrite)
	if err != nil {
		logger.Fatal("seed failed", "error", err)
	}
	fmt.Printf("seeded %d levels\n", n)
}
