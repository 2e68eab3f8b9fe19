package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/repository"
)

type ExerciseResult struct {
	Exercise domain.ExerciseProgress `json:"exercise"`
	Progress *domain.Progress        `json:"progress"`
}

// ExerciseScore is one exercise result reported together with a level score.
type ExerciseScore struct {
	ExerciseID string `json:"exercise_id"`
	Score      int    `json:"score"`
}

type LevelScoreResult struct {
	Progress          *domain.Progress    `json:"progress"`
	NewlyCompleted    bool                `json:"newly_completed"`
	CoinsAdded        int64               `json:"coins_added"`
	Balance           int64               `json:"balance"`
	NextLevelUnlocked int                 `json:"next_level_unlocked,omitempty"`
	Transaction       *domain.Transaction `json:"transaction,omitempty"`
}

// ProgressService records attempts and pays the one-time completion reward.
type ProgressService struct {
	store  repository.Store
	ledger *LedgerService
	gate   *LevelGate
	now    func() time.Time
}

func NewProgressService(store repository.Store, ledger *LedgerService, gate *LevelGate) *ProgressService {
	return &ProgressService{store: store, ledger: ledger, gate: gate, now: time.Now}
}

// accessibleLevel loads the user and level and rejects levels the user has not opened.
func (s *ProgressService) accessibleLevel(ctx context.Context, r *repository.Repos, userID, levelID int64, lock bool) (*domain.User, *domain.Level, error) {
	var (
		u   *domain.User
		err error
	)
	if lock {
		u, err = r.Users.GetByIDForUpdate(ctx, userID)
	} else {
		u, err = r.Users.GetByID(ctx, userID)
	}
	if err != nil {
		return nil, nil, err
	}
	level, err := r.Levels.GetByID(ctx, levelID)
	if err != nil {
		return nil, nil, err
	}
	if !level.IsActive && !u.IsAdmin {
		return nil, nil, domain.ErrLevelNotFound
	}
	if !s.gate.CanAccess(u, level.Number) {
		return nil, nil, domain.ErrLevelLocked
	}
	return u, level, nil
}

// RecordExercise stores one attempt at an exercise of levelID.
func (s *ProgressService) RecordExercise(ctx context.Context, userID, levelID int64, exerciseID string, score, timeSpent int) (*ExerciseResult, error) {
	exerciseID = strings.TrimSpace(exerciseID)
	if exerciseID == "" {
		return nil, domain.NewValidationError("exercise_id", "is required")
	}
	if err := domain.ValidateScore(score); err != nil {
		return nil, err
	}
	if err := domain.ValidateTimeSpent(timeSpent); err != nil {
		return nil, err
	}

	res := &ExerciseResult{}
	err := s.store.WithTx(ctx, func(r *repository.Repos) error {
		_, level, err := s.accessibleLevel(ctx, r, userID, levelID, false)
		if err != nil {
			return err
		}
		if _, ok := level.FindExercise(exerciseID); !ok {
			return domain.ErrExerciseNotFound
		}

		p, err := r.Progress.GetOrCreateForUpdate(ctx, userID, level)
		if err != nil {
			return err
		}
		res.Exercise = p.RecordExercise(exerciseID, score)
		p.TimeSpent += timeSpent
		p.LastAccessed = s.now()
		if err := r.Progress.Save(ctx, p); err != nil {
			return err
		}
		res.Progress = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SubmitQuiz grades answers server-side and records the result as an attempt.
func (s *ProgressService) SubmitQuiz(ctx context.Context, userID, levelID int64, exerciseID string, answers []int, timeSpent int) (*ExerciseResult, error) {
	repos := s.store.Repos()
	_, level, err := s.accessibleLevel(ctx, repos, userID, levelID, false)
	if err != nil {
		return nil, err
	}
	exercise, ok := level.FindExercise(exerciseID)
	if !ok {
		return nil, domain.ErrExerciseNotFound
	}
	score, err := exercise.GradeQuiz(answers)
	if err != nil {
		return nil, err
	}
	return s.RecordExercise(ctx, userID, levelID, exerciseID, score, timeSpent)
}

// RecordLevelScore stores a level attempt. The first attempt at or above
// the passing score pays the level reward and opens the next level; later
// passes only update the best score and time spent.
func (s *ProgressService) RecordLevelScore(ctx context.Context, userID, levelID int64, score, timeSpent int, exercises []ExerciseScore) (*LevelScoreResult, error) {
	if err := domain.ValidateScore(score); err != nil {
		return nil, err
	}
	if err := domain.ValidateTimeSpent(timeSpent); err != nil {
		return nil, err
	}
	for _, ex := range exercises {
		if strings.TrimSpace(ex.ExerciseID) == "" {
			return nil, domain.NewValidationError("exercises", "exercise_id is required")
		}
		if err := domain.ValidateScore(ex.Score); err != nil {
			return nil, err
		}
	}

	res := &LevelScoreResult{}
	var levelNumber int
	err := s.store.WithTx(ctx, func(r *repository.Repos) error {
		// the user row lock serializes concurrent completions of the same user
		u, level, err := s.accessibleLevel(ctx, r, userID, levelID, true)
		if err != nil {
			return err
		}
		levelNumber = level.Number
		res.Balance = u.Coins
		for _, ex := range exercises {
			if _, ok := level.FindExercise(strings.TrimSpace(ex.ExerciseID)); !ok {
				return domain.ErrExerciseNotFound
			}
		}

		p, err := r.Progress.GetOrCreateForUpdate(ctx, userID, level)
		if err != nil {
			return err
		}
		now := s.now()
		p.RecordScore(score, timeSpent)
		for _, ex := range exercises {
			p.RecordExercise(strings.TrimSpace(ex.ExerciseID), ex.Score)
		}
		p.LastAccessed = now

		if score >= domain.PassingScore && p.MarkCompleted(now) {
			res.NewlyCompleted = true
			t := &domain.Transaction{
				Type: domain.TransactionReward,
				Note: fmt.Sprintf("Completed level %d", level.Number),
			}
			res.Balance, err = s.ledger.CreditWithTx(ctx, r, userID, level.CoinsReward, t)
			if err != nil {
				return err
			}
			res.CoinsAdded = level.CoinsReward
			res.Transaction = t

			unlocked, err := s.gate.UnlockRewardWithTx(ctx, r, u, level.Number+1)
			if err != nil {
				return err
			}
			if unlocked {
				res.NextLevelUnlocked = level.Number + 1
			}

			err = LogWithTx(ctx, r, userID, domain.AuditActionLevelComplete, domain.AuditCategoryLevel, map[string]interface{}{
				"level":       level.Number,
				"score":       score,
				"coins_added": res.CoinsAdded,
			})
			if err != nil {
				return err
			}
		}

		if err := r.Progress.Save(ctx, p); err != nil {
			return err
		}
		res.Progress = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.NewlyCompleted {
		LevelCompletions.Inc()
		observeTransactions(res.Transaction)
		if res.NextLevelUnlocked > 0 {
			LevelUnlocks.WithLabelValues("reward").Inc()
		}
		logger.WithContext(ctx).Info("level completed", "user_id", userID, "level", levelNumber, "score", score)
		s.ledger.publish(domain.Event{
			Type:        domain.EventLevelCompleted,
			UserID:      userID,
			Balance:     res.Balance,
			Level:       levelNumber,
			Transaction: res.Transaction,
		})
	}
	return res, nil
}

// LevelProgress returns the user's progress on levelID, or an empty record
// when nothing was recorded yet.
func (s *ProgressService) LevelProgress(ctx context.Context, userID, levelID int64) (*domain.Progress, error) {
	repos := s.store.Repos()
	_, level, err := s.accessibleLevel(ctx, repos, userID, levelID, false)
	if err != nil {
		return nil, err
	}
	p, err := repos.Progress.Get(ctx, userID, levelID)
	if errors.Is(err, domain.ErrProgressNotFound) {
		return &domain.Progress{
			UserID:      userID,
			LevelID:     level.ID,
			LevelNumber: level.Number,
			Exercises:   []domain.ExerciseProgress{},
		}, nil
	}
	return p, err
}

// UserProgress lists every progress record of userID.
func (s *ProgressService) UserProgress(ctx context.Context, userID int64) ([]*domain.Progress, error) {
	list, err := s.store.Repos().Progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Progress{}
	}
	return list, nil
}
