package repository

import (
	"context"
	"errors"
	"strings"

	"learnjs_backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

// ErrReferralCodeTaken is returned by Create when the generated code collides.
var ErrReferralCodeTaken = errors.New("referral code already in use")

const userColumns = `id, name, email, COALESCE(password_hash, ''), coins, current_level, unlocked_levels,
	referral_code, referred_by, referrals, is_admin, last_active, created_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Coins,
		&u.CurrentLevel,
		&u.UnlockedLevels,
		&u.ReferralCode,
		&u.ReferredBy,
		&u.Referrals,
		&u.IsAdmin,
		&u.LastActive,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if len(u.UnlockedLevels) == 0 {
		u.UnlockedLevels = domain.DefaultUnlockedLevels()
	}
	if u.CurrentLevel == 0 {
		u.CurrentLevel = 1
	}

	var hash *string
	if u.PasswordHash != "" {
		hash = &u.PasswordHash
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, coins, current_level, unlocked_levels, referral_code, is_admin)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, last_active, created_at`,
		u.Name, strings.ToLower(u.Email), hash, u.Coins, u.CurrentLevel, u.UnlockedLevels, u.ReferralCode, u.IsAdmin,
	).Scan(&u.ID, &u.LastActive, &u.CreatedAt)

	switch {
	case isUniqueViolation(err, "users_email_key"):
		return domain.ErrEmailTaken
	case isUniqueViolation(err, "users_referral_code_key"):
		return ErrReferralCodeTaken
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, notFound(err, domain.ErrUserNotFound)
}

func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	return u, notFound(err, domain.ErrUserNotFound)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	))
	return u, notFound(err, domain.ErrUserNotFound)
}

func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE referral_code = $1`,
		strings.ToUpper(strings.TrimSpace(code)),
	))
	return u, notFound(err, domain.ErrUserNotFound)
}

// AddCoins updates the balance atomically; a debit that would go negative matches no row.
func (r *UserRepository) AddCoins(ctx context.Context, id int64, delta int64) (int64, error) {
	var newBalance int64
	err := r.db.QueryRow(ctx,
		`UPDATE users SET coins = coins + $1 WHERE id = $2 AND coins + $1 >= 0 RETURNING coins`,
		delta, id,
	).Scan(&newBalance)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Could be not found or insufficient funds, check which
			var exists bool
			if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
				return 0, err
			}
			if !exists {
				return 0, domain.ErrUserNotFound
			}
			return 0, domain.ErrInsufficientFunds
		}
		return 0, err
	}
	return newBalance, nil
}

func (r *UserRepository) UnlockLevel(ctx context.Context, id int64, n int) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`UPDATE users SET
			unlocked_levels = (SELECT array_agg(DISTINCT l ORDER BY l) FROM unnest(array_append(unlocked_levels, $2::int)) AS l),
			current_level = GREATEST(current_level, $2::int)
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, n,
	))
	return u, notFound(err, domain.ErrUserNotFound)
}

func (r *UserRepository) SetReferredBy(ctx context.Context, id, referrerID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET referred_by = $1 WHERE id = $2 AND referred_by IS NULL`,
		referrerID, id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) IncrementReferrals(ctx context.Context, id int64) error {
	return r.execOne(ctx, `UPDATE users SET referrals = referrals + 1 WHERE id = $1`, id)
}

func (r *UserRepository) UpdateName(ctx context.Context, id int64, name string) error {
	return r.execOne(ctx, `UPDATE users SET name = $1 WHERE id = $2`, name, id)
}

func (r *UserRepository) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	return r.execOne(ctx, `UPDATE users SET is_admin = $1 WHERE id = $2`, isAdmin, id)
}

func (r *UserRepository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	return r.execOne(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
}

func (r *UserRepository) Touch(ctx context.Context, id int64) error {
	return r.execOne(ctx, `UPDATE users SET last_active = NOW() WHERE id = $1`, id)
}

func (r *UserRepository) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern that matches search literally.
func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(search)) + "%"
}

// List returns a page of users matching search on name or email, plus the total match count.
func (r *UserRepository) List(ctx context.Context, search string, limit, offset int) ([]*domain.User, int, error) {
	pattern := containsPattern(search)

	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE name ILIKE $1 ESCAPE '\' OR email ILIKE $1 ESCAPE '\'`, pattern,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE name ILIKE $1 ESCAPE '\' OR email ILIKE $1 ESCAPE '\'
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		pattern, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	return users, total, err
}

func (r *UserRepository) Recent(ctx context.Context, limit int) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUsers(rows)
}

func scanUsers(rows pgx.Rows) ([]*domain.User, error) {
	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *UserRepository) TotalCoins(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(coins), 0) FROM users`).Scan(&n)
	return n, err
}

func (r *UserRepository) Balances(ctx context.Context) (map[int64]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id, coins FROM users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[int64]int64)
	for rows.Next() {
		var id, coins int64
		if err := rows.Scan(&id, &coins); err != nil {
			return nil, err
		}
		balances[id] = coins
	}
	return balances, rows.Err()
}
