package repository

import (
	"context"

	"learnjs_backend/internal/domain"

	"github.com/google/uuid"
)

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction. Rows are never updated afterwards.
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	if t.Reference == "" {
		t.Reference = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.TransactionStatusCompleted
	}

	return r.db.QueryRow(ctx,
		`INSERT INTO transactions (type, amount, from_user_id, to_user_id, note, status, reference)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		t.Type, t.Amount, t.FromUserID, t.ToUserID, t.Note, t.Status, t.Reference,
	).Scan(&t.ID, &t.CreatedAt)
}

// History returns the most recent transactions touching userID, with the
// other party's email resolved.
func (r *TransactionRepository) History(ctx context.Context, userID int64, limit int) ([]domain.TransactionView, error) {
	if limit <= 0 {
		limit = domain.HistoryLimit
	}

	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.type, t.amount, t.from_user_id, t.to_user_id, t.note, t.status, t.reference, t.created_at,
			COALESCE(cp.email, ''), COALESCE(cp.name, '')
		 FROM transactions t
		 LEFT JOIN users cp ON cp.id = CASE WHEN t.from_user_id = $1 THEN t.to_user_id ELSE t.from_user_id END
		 WHERE t.from_user_id = $1 OR t.to_user_id = $1
		 ORDER BY t.created_at DESC, t.id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TransactionView
	for rows.Next() {
		var (
			t           domain.Transaction
			email, name string
		)
		if err := rows.Scan(&t.ID, &t.Type, &t.Amount, &t.FromUserID, &t.ToUserID, &t.Note, &t.Status, &t.Reference, &t.CreatedAt, &email, &name); err != nil {
			return nil, err
		}
		result = append(result, t.ViewFor(userID, email, name))
	}
	return result, rows.Err()
}

func (r *TransactionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n)
	return n, err
}

func (r *TransactionRepository) NetByUser(ctx context.Context) (map[int64]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, SUM(delta) FROM (
			SELECT to_user_id AS user_id, amount AS delta FROM transactions WHERE to_user_id IS NOT NULL
			UNION ALL
			SELECT from_user_id, -amount FROM transactions WHERE from_user_id IS NOT NULL
		 ) moves
		 GROUP BY user_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	net := make(map[int64]int64)
	for rows.Next() {
		var id, sum int64
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		net[id] = sum
	}
	return net, rows.Err()
}
