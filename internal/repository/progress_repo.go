package repository

import (
	"context"
	"encoding/json"

	"learnjs_backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

const progressColumns = `id, user_id, level_id, level_number, completed, score, time_spent, exercises,
	completed_at, last_accessed, created_at`

type ProgressRepository struct {
	db DBTX
}

func NewProgressRepository(db DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func scanProgress(row pgx.Row) (*domain.Progress, error) {
	var (
		p             domain.Progress
		exercisesJSON []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.LevelID,
		&p.LevelNumber,
		&p.Completed,
		&p.Score,
		&p.TimeSpent,
		&exercisesJSON,
		&p.CompletedAt,
		&p.LastAccessed,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(exercisesJSON) > 0 {
		if err := json.Unmarshal(exercisesJSON, &p.Exercises); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (r *ProgressRepository) Get(ctx context.Context, userID, levelID int64) (*domain.Progress, error) {
	p, err := scanProgress(r.db.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE user_id = $1 AND level_id = $2`,
		userID, levelID,
	))
	return p, notFound(err, domain.ErrProgressNotFound)
}

// GetOrCreateForUpdate relies on the (user_id, level_id) unique index so
// concurrent first submissions end up on the same row.
func (r *ProgressRepository) GetOrCreateForUpdate(ctx context.Context, userID int64, level *domain.Level) (*domain.Progress, error) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO progress (user_id, level_id, level_number)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, level_id) DO NOTHING`,
		userID, level.ID, level.Number,
	)
	if err != nil {
		return nil, err
	}

	p, err := scanProgress(r.db.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE user_id = $1 AND level_id = $2 FOR UPDATE`,
		userID, level.ID,
	))
	return p, notFound(err, domain.ErrProgressNotFound)
}

func (r *ProgressRepository) Save(ctx context.Context, p *domain.Progress) error {
	exercisesJSON, err := json.Marshal(p.Exercises)
	if err != nil {
		return err
	}
	if p.Exercises == nil {
		exercisesJSON = []byte("[]")
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE progress SET
			completed = $1,
			score = $2,
			time_spent = $3,
			exercises = $4,
			completed_at = $5,
			last_accessed = $6
		 WHERE id = $7`,
		p.Completed, p.Score, p.TimeSpent, exercisesJSON, p.CompletedAt, p.LastAccessed, p.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProgressNotFound
	}
	return nil
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Progress, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE user_id = $1 ORDER BY level_number`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// LevelStats aggregates completions and average score of completed progress per level.
func (r *ProgressRepository) LevelStats(ctx context.Context) ([]domain.LevelStat, error) {
	rows, err := r.db.Query(ctx,
		`SELECT level_number, COUNT(*), COALESCE(AVG(score), 0)::float8
		 FROM progress
		 WHERE completed
		 GROUP BY level_number
		 ORDER BY level_number`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.LevelStat
	for rows.Next() {
		var s domain.LevelStat
		if err := rows.Scan(&s.LevelNumber, &s.Completions, &s.AvgScore); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
