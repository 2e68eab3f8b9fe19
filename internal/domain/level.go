package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

const DefaultCoinsReward int64 = 10

type ExerciseType string

const (
	ExerciseCoding ExerciseType = "coding"
	ExerciseQuiz   ExerciseType = "quiz"
)

type TestCase struct {
	Code     string `json:"code"`
	Expected string `json:"expected"`
}

type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	// CorrectAnswer is the index into Options. Nil in public payloads.
	CorrectAnswer *int `json:"correct_answer,omitempty"`
}

type Exercise struct {
	ID          string       `json:"id"`
	Type        ExerciseType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	InitialCode string       `json:"initial_code,omitempty"`
	TestCases   []TestCase   `json:"test_cases,omitempty"`
	Questions   []Question   `json:"questions,omitempty"`
	Hint        string       `json:"hint,omitempty"`
}

type Lesson struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Theory      string     `json:"theory"`
	Exercises   []Exercise `json:"exercises"`
}

type Level struct {
	ID            int64      `db:"id" json:"id"`
	Number        int        `db:"level_number" json:"level_number"`
	Title         string     `db:"title" json:"title"`
	Description   string     `db:"description" json:"description"`
	Difficulty    Difficulty `db:"difficulty" json:"difficulty"`
	CoinsRequired int64      `db:"coins_required" json:"coins_required"`
	CoinsReward   int64      `db:"coins_reward" json:"coins_reward"`
	Lessons       []Lesson   `db:"lessons" json:"lessons"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// CoinsRequired is the unlock price of level n.
func CoinsRequired(n int) int64 {
	if n <= FreeLevels {
		return 0
	}
	return int64(n-FreeLevels) * 10
}

// DifficultyFor picks the default difficulty band of level n.
func DifficultyFor(n int) Difficulty {
	switch {
	case n <= 10:
		return DifficultyBeginner
	case n <= 25:
		return DifficultyIntermediate
	case n <= 40:
		return DifficultyAdvanced
	default:
		return DifficultyExpert
	}
}

func ValidLevelNumber(n int) bool {
	return n >= 1 && n <= MaxLevel
}

// Normalize validates l and fills derived fields. It must run before every save.
func (l *Level) Normalize() error {
	if !ValidLevelNumber(l.Number) {
		return NewValidationError("level_number", "must be between 1 and 50")
	}
	l.Title = strings.TrimSpace(l.Title)
	if l.Title == "" {
		return NewValidationError("title", "is required")
	}
	switch l.Difficulty {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert:
	case "":
		l.Difficulty = DifficultyFor(l.Number)
	default:
		return NewValidationError("difficulty", "must be beginner, intermediate, advanced or expert")
	}
	if l.CoinsReward < 0 {
		return NewValidationError("coins_reward", "must not be negative")
	}
	if l.CoinsReward == 0 {
		l.CoinsReward = DefaultCoinsReward
	}
	l.CoinsRequired = CoinsRequired(l.Number)

	for i := range l.Lessons {
		for j := range l.Lessons[i].Exercises {
			ex := &l.Lessons[i].Exercises[j]
			if ex.ID == "" {
				ex.ID = uuid.NewString()
			}
			switch ex.Type {
			case ExerciseCoding:
			case ExerciseQuiz:
				for _, q := range ex.Questions {
					if q.CorrectAnswer == nil || *q.CorrectAnswer < 0 || *q.CorrectAnswer >= len(q.Options) {
						return NewValidationError("questions", "correct_answer must index one of the options")
					}
				}
			default:
				return NewValidationError("type", "exercise type must be coding or quiz")
			}
		}
	}
	return nil
}

// FindExercise looks an exercise up by id across all lessons.
func (l *Level) FindExercise(id string) (*Exercise, bool) {
	for i := range l.Lessons {
		for j := range l.Lessons[i].Exercises {
			if l.Lessons[i].Exercises[j].ID == id {
				return &l.Lessons[i].Exercises[j], true
			}
		}
	}
	return nil, false
}

// Clone returns a deep copy of l.
func (l *Level) Clone() *Level {
	c := *l
	c.Lessons = make([]Lesson, len(l.Lessons))
	for i, lesson := range l.Lessons {
		c.Lessons[i] = lesson
		c.Lessons[i].Exercises = make([]Exercise, len(lesson.Exercises))
		for j, ex := range lesson.Exercises {
			cp := ex
			cp.TestCases = append([]TestCase(nil), ex.TestCases...)
			cp.Questions = make([]Question, len(ex.Questions))
			for k, q := range ex.Questions {
				cq := q
				cq.Options = append([]string(nil), q.Options...)
				if q.CorrectAnswer != nil {
					v := *q.CorrectAnswer
					cq.CorrectAnswer = &v
				}
				cp.Questions[k] = cq
			}
			c.Lessons[i].Exercises[j] = cp
		}
	}
	return &c
}

// Public returns a copy with quiz answers removed.
func (l *Level) Public() *Level {
	c := l.Clone()
	for i := range c.Lessons {
		for j := range c.Lessons[i].Exercises {
			for k := range c.Lessons[i].Exercises[j].Questions {
				c.Lessons[i].Exercises[j].Questions[k].CorrectAnswer = nil
			}
		}
	}
	return c
}

// GradeQuiz scores answers against the exercise questions as a 0-100 percentage.
func (e *Exercise) GradeQuiz(answers []int) (int, error) {
	if e.Type != ExerciseQuiz {
		return 0, NewValidationError("exercise_id", "exercise is not a quiz")
	}
	if len(e.Questions) == 0 {
		return 0, NewValidationError("exercise_id", "quiz has no questions")
	}
	if len(answers) != len(e.Questions) {
		return 0, NewValidationError("answers", "must answer every question")
	}
	correct := 0
	for i, q := range e.Questions {
		if q.CorrectAnswer != nil && *q.CorrectAnswer == answers[i] {
			correct++
		}
	}
	return correct * 100 / len(e.Questions), nil
}

// LevelStat is the per-level aggregate shown on the admin dashboard.
type LevelStat struct {
	LevelNumber int     `json:"level_number"`
	Completions int     `json:"completions"`
	AvgScore    float64 `json:"avg_score"`
}
