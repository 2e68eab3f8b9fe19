package domain

import (
	"errors"
	"testing"
	"time"
)

func TestRecordExercise(t *testing.T) {
	p := &Progress{}

	ex := p.RecordExercise("e1", 60)
	if ex.Attempts != 1 || ex.BestScore != 60 || ex.Completed {
		t.Fatalf("unexpected first attempt %+v", ex)
	}
	ex = p.RecordExercise("e1", 90)
	if ex.Attempts != 2 || ex.BestScore != 90 || !ex.Completed {
		t.Fatalf("unexpected second attempt %+v", ex)
	}
	ex = p.RecordExercise("e1", 10)
	if ex.Attempts != 3 || ex.BestScore != 90 || !ex.Completed || ex.Score != 10 {
		t.Fatalf("completion or best score regressed %+v", ex)
	}
	p.RecordExercise("e2", 80)
	if len(p.Exercises) != 2 || !p.Exercises[1].Completed {
		t.Fatalf("expected second exercise completed at 80: %+v", p.Exercises)
	}
}

func TestRecordScoreKeepsMaxAndAccumulatesTime(t *testing.T) {
	p := &Progress{}
	p.RecordScore(70, 5)
	p.RecordScore(40, 3)
	if p.Score != 70 || p.TimeSpent != 8 {
		t.Fatalf("score=%d time=%d", p.Score, p.TimeSpent)
	}
}

func TestMarkCompletedOnce(t *testing.T) {
	p := &Progress{}
	now := time.Now()
	if !p.MarkCompleted(now) {
		t.Fatalf("first completion should report true")
	}
	if p.CompletedAt == nil || !p.CompletedAt.Equal(now) {
		t.Fatalf("completedAt not set")
	}
	if p.MarkCompleted(now.Add(time.Hour)) {
		t.Fatalf("second completion should report false")
	}
	if !p.CompletedAt.Equal(now) {
		t.Fatalf("completedAt moved on second completion")
	}
}

func TestValidateScore(t *testing.T) {
	for _, s := range []int{-1, 101} {
		if err := ValidateScore(s); !errors.Is(err, ErrValidation) {
			t.Fatalf("ValidateScore(%d) = %v", s, err)
		}
	}
	for _, s := range []int{0, 80, 100} {
		if err := ValidateScore(s); err != nil {
			t.Fatalf("ValidateScore(%d) = %v", s, err)
		}
	}
}
