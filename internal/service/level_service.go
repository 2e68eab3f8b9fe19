package service

import (
	"context"
	"errors"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/repository"
)

// LevelCache holds the active level catalog between requests.
type LevelCache interface {
	Get(ctx context.Context) ([]*domain.Level, bool)
	Set(ctx context.Context, levels []*domain.Level)
	Invalidate(ctx context.Context)
}

type noCache struct{}

func (noCache) Get(context.Context) ([]*domain.Level, bool) { return nil, false }
func (noCache) Set(context.Context, []*domain.Level)        {}
func (noCache) Invalidate(context.Context)                  {}

// LevelSummary is one catalog entry as seen by a particular user.
type LevelSummary struct {
	ID            int64             `json:"id"`
	Number        int               `json:"level_number"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Difficulty    domain.Difficulty `json:"difficulty"`
	CoinsRequired int64             `json:"coins_required"`
	CoinsReward   int64             `json:"coins_reward"`
	Lessons       int               `json:"lessons"`
	IsUnlocked    bool              `json:"is_unlocked"`
	Completed     bool              `json:"completed"`
	Score         int               `json:"score"`
}

type LevelDetail struct {
	Level      *domain.Level    `json:"level"`
	IsUnlocked bool             `json:"is_unlocked"`
	Progress   *domain.Progress `json:"progress,omitempty"`
}

type LevelService struct {
	store repository.Store
	gate  *LevelGate
	cache LevelCache
}

func NewLevelService(store repository.Store, gate *LevelGate, cache LevelCache) *LevelService {
	if cache == nil {
		cache = noCache{}
	}
	return &LevelService{store: store, gate: gate, cache: cache}
}

func (s *LevelService) activeLevels(ctx context.Context) ([]*domain.Level, error) {
	if levels, ok := s.cache.Get(ctx); ok {
		return levels, nil
	}
	levels, err := s.store.Repos().Levels.List(ctx, true)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, levels)
	return levels, nil
}

// InvalidateCache drops the cached catalog after an admin edit.
func (s *LevelService) InvalidateCache(ctx context.Context) {
	s.cache.Invalidate(ctx)
	logger.WithContext(ctx).Debug("level cache invalidated")
}

// List returns the active catalog annotated with the user's access and progress.
// A zero userID lists the catalog for an anonymous visitor, who sees the
// free tier as unlocked.
func (s *LevelService) List(ctx context.Context, userID int64) ([]LevelSummary, error) {
	repos := s.store.Repos()
	u := &domain.User{}
	var progress []*domain.Progress
	if userID != 0 {
		var err error
		if u, err = repos.Users.GetByID(ctx, userID); err != nil {
			return nil, err
		}
		if progress, err = repos.Progress.ListByUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	levels, err := s.activeLevels(ctx)
	if err != nil {
		return nil, err
	}
	byLevel := make(map[int64]*domain.Progress, len(progress))
	for _, p := range progress {
		byLevel[p.LevelID] = p
	}

	out := make([]LevelSummary, 0, len(levels))
	for _, l := range levels {
		sum := LevelSummary{
			ID:            l.ID,
			Number:        l.Number,
			Title:         l.Title,
			Description:   l.Description,
			Difficulty:    l.Difficulty,
			CoinsRequired: l.CoinsRequired,
			CoinsReward:   l.CoinsReward,
			Lessons:       len(l.Lessons),
			IsUnlocked:    s.gate.CanAccess(u, l.Number),
		}
		if p, ok := byLevel[l.ID]; ok {
			sum.Completed = p.Completed
			sum.Score = p.Score
		}
		out = append(out, sum)
	}
	return out, nil
}

// Unlocked returns only the catalog entries the user can open.
func (s *LevelService) Unlocked(ctx context.Context, userID int64) ([]LevelSummary, error) {
	all, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]LevelSummary, 0, len(all))
	for _, l := range all {
		if l.IsUnlocked {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *LevelService) findActive(ctx context.Context, match func(l *domain.Level) bool) (*domain.Level, error) {
	levels, err := s.activeLevels(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range levels {
		if match(l) {
			return l, nil
		}
	}
	return nil, domain.ErrLevelNotFound
}

// Get returns the level content for a user who has access to it. Quiz
// answers are never included.
func (s *LevelService) Get(ctx context.Context, userID, levelID int64) (*LevelDetail, error) {
	level, err := s.findActive(ctx, func(l *domain.Level) bool { return l.ID == levelID })
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, userID, level)
}

func (s *LevelService) GetByNumber(ctx context.Context, userID int64, n int) (*LevelDetail, error) {
	if !domain.ValidLevelNumber(n) {
		return nil, domain.NewValidationError("level_number", "must be between 1 and 50")
	}
	level, err := s.findActive(ctx, func(l *domain.Level) bool { return l.Number == n })
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, userID, level)
}

func (s *LevelService) detail(ctx context.Context, userID int64, level *domain.Level) (*LevelDetail, error) {
	repos := s.store.Repos()
	u, err := repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.gate.CanAccess(u, level.Number) {
		return nil, domain.ErrLevelLocked
	}

	d := &LevelDetail{Level: level.Public(), IsUnlocked: true}
	p, err := repos.Progress.Get(ctx, userID, level.ID)
	switch {
	case err == nil:
		d.Progress = p
	case !errors.Is(err, domain.ErrProgressNotFound):
		return nil, err
	}
	return d, nil
}

// All lists every level including inactive ones, with answers, for admins.
func (s *LevelService) All(ctx context.Context) ([]*domain.Level, error) {
	levels, err := s.store.Repos().Levels.List(ctx, false)
	if err != nil {
		return nil, err
	}
	if levels == nil {
		levels = []*domain.Level{}
	}
	return levels, nil
}
