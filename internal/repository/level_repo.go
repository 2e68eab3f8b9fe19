package repository

import (
	"context"
	"encoding/json"

	"learnjs_backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

const levelColumns = `id, level_number, title, description, difficulty, coins_required, coins_reward,
	lessons, is_active, created_at, updated_at`

type LevelRepository struct {
	db DBTX
}

func NewLevelRepository(db DBTX) *LevelRepository {
	return &LevelRepository{db: db}
}

func scanLevel(row pgx.Row) (*domain.Level, error) {
	var (
		l           domain.Level
		lessonsJSON []byte
	)
	if err := row.Scan(
		&l.ID,
		&l.Number,
		&l.Title,
		&l.Description,
		&l.Difficulty,
		&l.CoinsRequired,
		&l.CoinsReward,
		&lessonsJSON,
		&l.IsActive,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(lessonsJSON) > 0 {
		if err := json.Unmarshal(lessonsJSON, &l.Lessons); err != nil {
			return nil, err
		}
	}
	return &l, nil
}

// Upsert normalizes l and writes it keyed by level number.
func (r *LevelRepository) Upsert(ctx context.Context, l *domain.Level) error {
	if err := l.Normalize(); err != nil {
		return err
	}
	lessonsJSON, err := json.Marshal(l.Lessons)
	if err != nil {
		return err
	}
	if l.Lessons == nil {
		lessonsJSON = []byte("[]")
	}

	return r.db.QueryRow(ctx,
		`INSERT INTO levels (level_number, title, description, difficulty, coins_required, coins_reward, lessons, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (level_number) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			difficulty = EXCLUDED.difficulty,
			coins_required = EXCLUDED.coins_required,
			coins_reward = EXCLUDED.coins_reward,
			lessons = EXCLUDED.lessons,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		l.Number, l.Title, l.Description, l.Difficulty, l.CoinsRequired, l.CoinsReward, lessonsJSON, l.IsActive,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

func (r *LevelRepository) GetByID(ctx context.Context, id int64) (*domain.Level, error) {
	l, err := scanLevel(r.db.QueryRow(ctx, `SELECT `+levelColumns+` FROM levels WHERE id = $1`, id))
	return l, notFound(err, domain.ErrLevelNotFound)
}

func (r *LevelRepository) GetByNumber(ctx context.Context, n int) (*domain.Level, error) {
	l, err := scanLevel(r.db.QueryRow(ctx,
		`SELECT `+levelColumns+` FROM levels WHERE level_number = $1 AND is_active`, n,
	))
	return l, notFound(err, domain.ErrLevelNotFound)
}

func (r *LevelRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Level, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+levelColumns+` FROM levels WHERE is_active OR NOT $1 ORDER BY level_number`,
		activeOnly,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLevels(rows)
}

func (r *LevelRepository) ListByNumbers(ctx context.Context, numbers []int) ([]*domain.Level, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+levelColumns+` FROM levels WHERE level_number = ANY($1) AND is_active ORDER BY level_number`,
		numbers,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLevels(rows)
}

func scanLevels(rows pgx.Rows) ([]*domain.Level, error) {
	var levels []*domain.Level
	for rows.Next() {
		l, err := scanLevel(rows)
		if err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}
