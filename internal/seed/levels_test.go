package seed

import (
	"context"
	"testing"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/repository/memory"
)

func TestCatalogIsValid(t *testing.T) {
	levels := Levels()
	if len(levels) != domain.MaxLevel {
		t.Fatalf("expected %d levels, got %d", domain.MaxLevel, len(levels))
	}
	for i, l := range levels {
		if l.Number != i+1 {
			t.Fatalf("level %d out of order", l.Number)
		}
		if err := l.Normalize(); err != nil {
			t.Fatalf("level %d: %v", l.Number, err)
		}
	}
	if levels[11].CoinsRequired != 20 || levels[0].CoinsRequired != 0 {
		t.Fatalf("unexpected prices %d, %d", levels[0].CoinsRequired, levels[11].CoinsRequired)
	}
}

func TestSeedSkipsExisting(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	custom := &domain.Level{Number: 3, Title: "Custom", IsActive: true}
	if err := custom.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := store.Repos().Levels.Upsert(ctx, custom); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	n, err := Seed(ctx, store, false)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != domain.MaxLevel-1 {
		t.Fatalf("wrote %d levels", n)
	}
	l, _ := store.Repos().Levels.GetByNumber(ctx, 3)
	if l.Title != "Custom" {
		t.Fatalf("existing level overwritten")
	}

	if n, _ := Seed(ctx, store, false); n != 0 {
		t.Fatalf("second seed wrote %d levels", n)
	}
	if n, _ := Seed(ctx, store, true); n != domain.MaxLevel {
		t.Fatalf("overwrite wrote %d levels", n)
	}
}
