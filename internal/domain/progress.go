package domain

import "time"

// PassingScore completes an exercise or a level.
const PassingScore = 80

type ExerciseProgress struct {
	ExerciseID string `json:"exercise_id"`
	Completed  bool   `json:"completed"`
	Score      int    `json:"score"`
	Attempts   int    `json:"attempts"`
	BestScore  int    `json:"best_score"`
}

type Progress struct {
	ID           int64              `db:"id" json:"id"`
	UserID       int64              `db:"user_id" json:"user_id"`
	LevelID      int64              `db:"level_id" json:"level_id"`
	LevelNumber  int                `db:"level_number" json:"level_number"`
	Completed    bool               `db:"completed" json:"completed"`
	Score        int                `db:"score" json:"score"`
	TimeSpent    int                `db:"time_spent" json:"time_spent"`
	Exercises    []ExerciseProgress `db:"exercises" json:"exercises"`
	CompletedAt  *time.Time         `db:"completed_at" json:"completed_at,omitempty"`
	LastAccessed time.Time          `db:"last_accessed" json:"last_accessed"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
}

func ValidateScore(score int) error {
	if score < 0 || score > 100 {
		return NewValidationError("score", "must be between 0 and 100")
	}
	return nil
}

func ValidateTimeSpent(minutes int) error {
	if minutes < 0 {
		return NewValidationError("time_spent", "must not be negative")
	}
	return nil
}

// RecordExercise registers one attempt at an exercise.
func (p *Progress) RecordExercise(exerciseID string, score int) ExerciseProgress {
	for i := range p.Exercises {
		ex := &p.Exercises[i]
		if ex.ExerciseID != exerciseID {
			continue
		}
		ex.Attempts++
		ex.Score = score
		if score > ex.BestScore {
			ex.BestScore = score
		}
		if score >= PassingScore {
			ex.Completed = true
		}
		return *ex
	}
	ex := ExerciseProgress{
		ExerciseID: exerciseID,
		Completed:  score >= PassingScore,
		Score:      score,
		Attempts:   1,
		BestScore:  score,
	}
	p.Exercises = append(p.Exercises, ex)
	return ex
}

// RecordScore keeps the best level score and accumulates time spent.
func (p *Progress) RecordScore(score, timeSpent int) {
	if score > p.Score {
		p.Score = score
	}
	p.TimeSpent += timeSpent
}

// MarkCompleted flips the completion flag. It returns false if the level
// was already complete, so the caller pays the reward only once.
func (p *Progress) MarkCompleted(now time.Time) bool {
	if p.Completed {
		return false
	}
	p.Completed = true
	p.CompletedAt = &now
	return true
}

func (p *Progress) Clone() *Progress {
	c := *p
	c.Exercises = append([]ExerciseProgress(nil), p.Exercises...)
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
