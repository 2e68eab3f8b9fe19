// Package seed holds the starter level catalog.
package seed

import (
	"context"
	"fmt"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/repository"
)

var topics = [domain.MaxLevel]string{
	"JavaScript Basics", "Variables and Constants", "Data Types", "Operators", "Strings",
	"Conditionals", "Loops", "Functions", "Arrays", "Objects",
	"Scope and Hoisting", "Closures", "Arrow Functions", "Array Methods", "Destructuring",
	"Spread and Rest", "Template Literals", "Error Handling", "The this Keyword", "Prototypes",
	"Classes", "Getters and Setters", "Modules", "Callbacks", "Promises",
	"Async and Await", "The Event Loop", "Timers", "JSON", "Regular Expressions",
	"Maps and Sets", "Symbols", "Iterators", "Generators", "Proxies and Reflect",
	"The DOM", "Events", "Forms", "Fetch API", "Web Storage",
	"Functional Patterns", "Immutability", "Recursion", "Higher-Order Functions", "Currying",
	"Design Patterns", "Testing", "Performance", "Security Basics", "Final Project",
}

func intPtr(n int) *int { return &n }

// Levels returns the full starter catalog, one level per topic.
func Levels() []*domain.Level {
	out := make([]*domain.Level, 0, domain.MaxLevel)
	for i, topic := range topics {
		n := i + 1
		out = append(out, &domain.Level{
			Number:      n,
			Title:       topic,
			Description: fmt.Sprintf("Level %d: %s", n, topic),
			IsActive:    true,
			Lessons: []domain.Lesson{{
				Title:       topic,
				Description: "Introduction to " + topic,
				Theory:      "<h2>" + topic + "</h2>",
				Exercises: []domain.Exercise{{
					Type:        domain.ExerciseCoding,
					Title:       topic + " Practice",
					Description: "Write code that uses " + topic,
					InitialCode: "// your code here\n",
				}},
			}},
		})
	}

	first := out[0]
	first.Description = "Learn the fundamental concepts of JavaScript"
	first.Lessons[0] = domain.Lesson{
		Title:       "What is JavaScript?",
		Description: "Introduction to JavaScript and its capabilities",
		Theory:      "<h2>Welcome to JavaScript!</h2><p>JavaScript is a programming language that makes web pages interactive.</p>",
		Exercises: []domain.Exercise{{
			Type:        domain.ExerciseQuiz,
			Title:       "JavaScript Basics Quiz",
			Description: "Test your understanding of JavaScript fundamentals",
			Questions: []domain.Question{{
				Question:      "What is JavaScript primarily used for?",
				Options:       []string{"Styling web pages", "Making web pages interactive", "Creating databases", "Designing graphics"},
				CorrectAnswer: intPtr(1),
			}},
			Hint: "Think about what happens when you click buttons on websites",
		}},
	}
	return out
}

// Seed stores every catalog level missing from the store, or all of them
// when overwrite is set. It returns the number of levels written.
func Seed(ctx context.Context, store repository.Store, overwrite bool) (int, error) {
	written := 0
	err := store.WithTx(ctx, func(r *repository.Repos) error {
		existing, err := r.Levels.List(ctx, false)
		if err != nil {
			return err
		}
		have := make(map[int]bool, len(existing))
		for _, l := range existing {
			have[l.Number] = true
		}

		for _, l := range Levels() {
			if have[l.Number] && !overwrite {
				continue
			}
			if err := l.Normalize(); err != nil {
				return fmt.Errorf("level %d: %w", l.Number, err)
			}
			if err := r.Levels.Upsert(ctx, l); err != nil {
				return fmt.Errorf("level %d: %w", l.Number, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	logger.Info("levels seeded", "written", written)
	return written, nil
}
