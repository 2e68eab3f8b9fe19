// Package memory is an in-process repository.Store used by unit tests and
// by STORAGE=memory for running the API without Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/repository"

	"github.com/google/uuid"
)

type state struct {
	users        map[int64]*domain.User
	levels       map[int64]*domain.Level
	progress     map[int64]*domain.Progress
	transactions []*domain.Transaction
	referrals    []*domain.Referral
	audit        []*domain.AuditLog

	nextUser, nextLevel, nextProgress, nextTx, nextReferral, nextAudit int64
}

func newState() *state {
	return &state{
		users:    make(map[int64]*domain.User),
		levels:   make(map[int64]*domain.Level),
		progress: make(map[int64]*domain.Progress),
	}
}

func (st *state) clone() *state {
	c := *st
	c.users = make(map[int64]*domain.User, len(st.users))
	for id, u := range st.users {
		c.users[id] = cloneUser(u)
	}
	c.levels = make(map[int64]*domain.Level, len(st.levels))
	for id, l := range st.levels {
		c.levels[id] = l.Clone()
	}
	c.progress = make(map[int64]*domain.Progress, len(st.progress))
	for id, p := range st.progress {
		c.progress[id] = p.Clone()
	}
	c.transactions = append([]*domain.Transaction(nil), st.transactions...)
	c.referrals = append([]*domain.Referral(nil), st.referrals...)
	c.audit = append([]*domain.AuditLog(nil), st.audit...)
	return &c
}

// Store serializes all access behind one mutex. WithTx holds it for the
// whole callback and restores a snapshot when the callback fails.
type Store struct {
	mu    sync.Mutex
	st    *state
	repos *repository.Repos
}

func New() *Store {
	s := &Store{st: newState()}
	s.repos = reposFor(&handle{s: s})
	return s
}

func (s *Store) Repos() *repository.Repos {
	return s.repos
}

func (s *Store) WithTx(ctx context.Context, fn func(r *repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(reposFor(&handle{s: s, inTx: true})); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// WithSnapshot holds the store lock for the whole read, so fn sees no
// concurrent writes.
func (s *Store) WithSnapshot(ctx context.Context, fn func(r *repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(reposFor(&handle{s: s, inTx: true}))
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() {}

type handle struct {
	s    *Store
	inTx bool
}

// do runs fn against the current state, taking the lock unless the
// surrounding transaction already holds it.
func (h *handle) do(fn func(st *state) error) error {
	if !h.inTx {
		h.s.mu.Lock()
		defer h.s.mu.Unlock()
	}
	return fn(h.s.st)
}

func reposFor(h *handle) *repository.Repos {
	return &repository.Repos{
		Users:        &users{h},
		Levels:       &levels{h},
		Progress:     &progresses{h},
		Transactions: &transactions{h},
		Referrals:    &referrals{h},
		Audit:        &auditLogs{h},
	}
}

func now() time.Time {
	return time.Now().UTC()
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.UnlockedLevels = append([]int(nil), u.UnlockedLevels...)
	if u.ReferredBy != nil {
		v := *u.ReferredBy
		c.ReferredBy = &v
	}
	return &c
}

type users struct{ *handle }

func (r *users) Create(ctx context.Context, u *domain.User) error {
	return r.do(func(st *state) error {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		for _, existing := range st.users {
			if existing.Email == email {
				return domain.ErrEmailTaken
			}
			if existing.ReferralCode == u.ReferralCode {
				return repository.ErrReferralCodeTaken
			}
		}
		if len(u.UnlockedLevels) == 0 {
			u.UnlockedLevels = domain.DefaultUnlockedLevels()
		}
		if u.CurrentLevel == 0 {
			u.CurrentLevel = 1
		}
		st.nextUser++
		u.ID = st.nextUser
		u.Email = email
		u.CreatedAt = now()
		u.LastActive = u.CreatedAt
		st.users[u.ID] = cloneUser(u)
		return nil
	})
}

func (r *users) get(id int64) (*domain.User, error) {
	var out *domain.User
	err := r.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = cloneUser(u)
		return nil
	})
	return out, err
}

func (r *users) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.get(id)
}

func (r *users) GetByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return r.get(id)
}

func (r *users) find(match func(u *domain.User) bool) (*domain.User, error) {
	var out *domain.User
	err := r.do(func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				out = cloneUser(u)
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	return out, err
}

func (r *users) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *users) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	return r.find(func(u *domain.User) bool { return u.ReferralCode == code })
}

func (r *users) update(id int64, fn func(u *domain.User) error) error {
	return r.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		return fn(u)
	})
}

func (r *users) AddCoins(ctx context.Context, id int64, delta int64) (int64, error) {
	var balance int64
	err := r.update(id, func(u *domain.User) error {
		if u.Coins+delta < 0 {
			return domain.ErrInsufficientFunds
		}
		u.Coins += delta
		balance = u.Coins
		return nil
	})
	return balance, err
}

func (r *users) UnlockLevel(ctx context.Context, id int64, n int) (*domain.User, error) {
	var out *domain.User
	err := r.update(id, func(u *domain.User) error {
		u.Unlock(n)
		out = cloneUser(u)
		return nil
	})
	return out, err
}

func (r *users) SetReferredBy(ctx context.Context, id, referrerID int64) (bool, error) {
	set := false
	err := r.update(id, func(u *domain.User) error {
		if u.ReferredBy == nil {
			u.ReferredBy = &referrerID
			set = true
		}
		return nil
	})
	return set, err
}

func (r *users) IncrementReferrals(ctx context.Context, id int64) error {
	return r.update(id, func(u *domain.User) error { u.Referrals++; return nil })
}

func (r *users) UpdateName(ctx context.Context, id int64, name string) error {
	return r.update(id, func(u *domain.User) error { u.Name = name; return nil })
}

func (r *users) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	return r.update(id, func(u *domain.User) error { u.IsAdmin = isAdmin; return nil })
}

func (r *users) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	return r.update(id, func(u *domain.User) error { u.PasswordHash = hash; return nil })
}

func (r *users) Touch(ctx context.Context, id int64) error {
	return r.update(id, func(u *domain.User) error { u.LastActive = now(); return nil })
}

// sortedUsers returns users newest first.
func (st *state) sortedUsers() []*domain.User {
	list := make([]*domain.User, 0, len(st.users))
	for _, u := range st.users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list
}

func (r *users) List(ctx context.Context, search string, limit, offset int) ([]*domain.User, int, error) {
	var (
		out   []*domain.User
		total int
	)
	search = strings.ToLower(strings.TrimSpace(search))
	err := r.do(func(st *state) error {
		var matched []*domain.User
		for _, u := range st.sortedUsers() {
			if search == "" || strings.Contains(strings.ToLower(u.Name), search) || strings.Contains(u.Email, search) {
				matched = append(matched, u)
			}
		}
		total = len(matched)
		for i := offset; i < len(matched) && len(out) < limit; i++ {
			out = append(out, cloneUser(matched[i]))
		}
		return nil
	})
	return out, total, err
}

func (r *users) Recent(ctx context.Context, limit int) ([]*domain.User, error) {
	out, _, err := r.List(ctx, "", limit, 0)
	return out, err
}

func (r *users) Count(ctx context.Context) (int, error) {
	var n int
	err := r.do(func(st *state) error { n = len(st.users); return nil })
	return n, err
}

func (r *users) TotalCoins(ctx context.Context) (int64, error) {
	var total int64
	err := r.do(func(st *state) error {
		for _, u := range st.users {
			total += u.Coins
		}
		return nil
	})
	return total, err
}

func (r *users) Balances(ctx context.Context) (map[int64]int64, error) {
	balances := make(map[int64]int64)
	err := r.do(func(st *state) error {
		for id, u := range st.users {
			balances[id] = u.Coins
		}
		return nil
	})
	return balances, err
}

type levels struct{ *handle }

func (r *levels) Upsert(ctx context.Context, l *domain.Level) error {
	if err := l.Normalize(); err != nil {
		return err
	}
	return r.do(func(st *state) error {
		ts := now()
		l.UpdatedAt = ts
		for id, existing := range st.levels {
			if existing.Number == l.Number {
				l.ID = id
				l.CreatedAt = existing.CreatedAt
				st.levels[id] = l.Clone()
				return nil
			}
		}
		st.nextLevel++
		l.ID = st.nextLevel
		l.CreatedAt = ts
		st.levels[l.ID] = l.Clone()
		return nil
	})
}

func (r *levels) GetByID(ctx context.Context, id int64) (*domain.Level, error) {
	var out *domain.Level
	err := r.do(func(st *state) error {
		l, ok := st.levels[id]
		if !ok {
			return domain.ErrLevelNotFound
		}
		out = l.Clone()
		return nil
	})
	return out, err
}

func (r *levels) GetByNumber(ctx context.Context, n int) (*domain.Level, error) {
	var out *domain.Level
	err := r.do(func(st *state) error {
		for _, l := range st.levels {
			if l.Number == n && l.IsActive {
				out = l.Clone()
				return nil
			}
		}
		return domain.ErrLevelNotFound
	})
	return out, err
}

func (r *levels) filter(match func(l *domain.Level) bool) ([]*domain.Level, error) {
	var out []*domain.Level
	err := r.do(func(st *state) error {
		for _, l := range st.levels {
			if match(l) {
				out = append(out, l.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, err
}

func (r *levels) List(ctx context.Context, activeOnly bool) ([]*domain.Level, error) {
	return r.filter(func(l *domain.Level) bool { return l.IsActive || !activeOnly })
}

func (r *levels) ListByNumbers(ctx context.Context, numbers []int) ([]*domain.Level, error) {
	want := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		want[n] = true
	}
	return r.filter(func(l *domain.Level) bool { return l.IsActive && want[l.Number] })
}

type progresses struct{ *handle }

func (st *state) findProgress(userID, levelID int64) *domain.Progress {
	for _, p := range st.progress {
		if p.UserID == userID && p.LevelID == levelID {
			return p
		}
	}
	return nil
}

func (r *progresses) Get(ctx context.Context, userID, levelID int64) (*domain.Progress, error) {
	var out *domain.Progress
	err := r.do(func(st *state) error {
		p := st.findProgress(userID, levelID)
		if p == nil {
			return domain.ErrProgressNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r *progresses) GetOrCreateForUpdate(ctx context.Context, userID int64, level *domain.Level) (*domain.Progress, error) {
	var out *domain.Progress
	err := r.do(func(st *state) error {
		p := st.findProgress(userID, level.ID)
		if p == nil {
			st.nextProgress++
			ts := now()
			p = &domain.Progress{
				ID:           st.nextProgress,
				UserID:       userID,
				LevelID:      level.ID,
				LevelNumber:  level.Number,
				LastAccessed: ts,
				CreatedAt:    ts,
			}
			st.progress[p.ID] = p
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r *progresses) Save(ctx context.Context, p *domain.Progress) error {
	return r.do(func(st *state) error {
		if _, ok := st.progress[p.ID]; !ok {
			return domain.ErrProgressNotFound
		}
		st.progress[p.ID] = p.Clone()
		return nil
	})
}

func (r *progresses) ListByUser(ctx context.Context, userID int64) ([]*domain.Progress, error) {
	var out []*domain.Progress
	err := r.do(func(st *state) error {
		for _, p := range st.progress {
			if p.UserID == userID {
				out = append(out, p.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].LevelNumber < out[j].LevelNumber })
	return out, err
}

func (r *progresses) LevelStats(ctx context.Context) ([]domain.LevelStat, error) {
	var stats []domain.LevelStat
	err := r.do(func(st *state) error {
		byLevel := make(map[int]*domain.LevelStat)
		sums := make(map[int]int)
		for _, p := range st.progress {
			if !p.Completed {
				continue
			}
			s, ok := byLevel[p.LevelNumber]
			if !ok {
				s = &domain.LevelStat{LevelNumber: p.LevelNumber}
				byLevel[p.LevelNumber] = s
			}
			s.Completions++
			sums[p.LevelNumber] += p.Score
		}
		for n, s := range byLevel {
			s.AvgScore = float64(sums[n]) / float64(s.Completions)
			stats = append(stats, *s)
		}
		return nil
	})
	sort.Slice(stats, func(i, j int) bool { return stats[i].LevelNumber < stats[j].LevelNumber })
	return stats, err
}

type transactions struct{ *handle }

func (r *transactions) Create(ctx context.Context, t *domain.Transaction) error {
	return r.do(func(st *state) error {
		if t.Reference == "" {
			t.Reference = uuid.NewString()
		}
		if t.Status == "" {
			t.Status = domain.TransactionStatusCompleted
		}
		st.nextTx++
		t.ID = st.nextTx
		t.CreatedAt = now()
		c := *t
		st.transactions = append(st.transactions, &c)
		return nil
	})
}

func (r *transactions) History(ctx context.Context, userID int64, limit int) ([]domain.TransactionView, error) {
	if limit <= 0 {
		limit = domain.HistoryLimit
	}
	var out []domain.TransactionView
	err := r.do(func(st *state) error {
		for i := len(st.transactions) - 1; i >= 0 && len(out) < limit; i-- {
			t := st.transactions[i]
			if !touches(t, userID) {
				continue
			}
			var email, name string
			other := t.FromUserID
			if other != nil && *other == userID {
				other = t.ToUserID
			}
			if other != nil {
				if u, ok := st.users[*other]; ok {
					email, name = u.Email, u.Name
				}
			}
			out = append(out, t.ViewFor(userID, email, name))
		}
		return nil
	})
	return out, err
}

func touches(t *domain.Transaction, userID int64) bool {
	return (t.FromUserID != nil && *t.FromUserID == userID) || (t.ToUserID != nil && *t.ToUserID == userID)
}

func (r *transactions) Count(ctx context.Context) (int, error) {
	var n int
	err := r.do(func(st *state) error { n = len(st.transactions); return nil })
	return n, err
}

func (r *transactions) NetByUser(ctx context.Context) (map[int64]int64, error) {
	net := make(map[int64]int64)
	err := r.do(func(st *state) error {
		for _, t := range st.transactions {
			if t.ToUserID != nil {
				net[*t.ToUserID] += t.Amount
			}
			if t.FromUserID != nil {
				net[*t.FromUserID] -= t.Amount
			}
		}
		return nil
	})
	return net, err
}

type referrals struct{ *handle }

func (r *referrals) Create(ctx context.Context, ref *domain.Referral) error {
	return r.do(func(st *state) error {
		for _, existing := range st.referrals {
			if existing.ReferredID == ref.ReferredID {
				return domain.ErrAlreadyProcessed
			}
		}
		if ref.Status == "" {
			ref.Status = domain.ReferralStatusCompleted
		}
		st.nextReferral++
		ref.ID = st.nextReferral
		ref.CreatedAt = now()
		c := *ref
		st.referrals = append(st.referrals, &c)
		return nil
	})
}

func (r *referrals) Exists(ctx context.Context, referrerID, referredID int64) (bool, error) {
	found := false
	err := r.do(func(st *state) error {
		for _, ref := range st.referrals {
			if ref.ReferrerID == referrerID && ref.ReferredID == referredID {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *referrals) ListByReferrer(ctx context.Context, referrerID int64) ([]*domain.Referral, error) {
	var out []*domain.Referral
	err := r.do(func(st *state) error {
		for i := len(st.referrals) - 1; i >= 0; i-- {
			ref := st.referrals[i]
			if ref.ReferrerID != referrerID {
				continue
			}
			c := *ref
			if u, ok := st.users[ref.ReferredID]; ok {
				c.ReferredName, c.ReferredEmail = u.Name, u.Email
			}
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

func (r *referrals) Stats(ctx context.Context, referrerID int64) (domain.ReferralStats, error) {
	var stats domain.ReferralStats
	err := r.do(func(st *state) error {
		for _, ref := range st.referrals {
			if ref.ReferrerID == referrerID {
				stats.TotalReferrals++
				stats.TotalEarned += ref.CoinsEarned
			}
		}
		return nil
	})
	return stats, err
}

type auditLogs struct{ *handle }

func (r *auditLogs) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.do(func(st *state) error {
		st.nextAudit++
		log.ID = st.nextAudit
		log.CreatedAt = now()
		c := *log
		st.audit = append(st.audit, &c)
		return nil
	})
}

func (r *auditLogs) filter(limit int, match func(l *domain.AuditLog) bool) ([]*domain.AuditLog, error) {
	var out []*domain.AuditLog
	err := r.do(func(st *state) error {
		for i := len(st.audit) - 1; i >= 0 && len(out) < limit; i-- {
			if match(st.audit[i]) {
				c := *st.audit[i]
				out = append(out, &c)
			}
		}
		return nil
	})
	return out, err
}

func (r *auditLogs) GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	return r.filter(limit, func(l *domain.AuditLog) bool { return l.UserID == userID })
}

func (r *auditLogs) GetByCategory(ctx context.Context, category string, limit int) ([]*domain.AuditLog, error) {
	return r.filter(limit, func(l *domain.AuditLog) bool { return l.Category == category })
}

func (r *auditLogs) GetRecent(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	return r.filter(limit, func(l *domain.AuditLog) bool { return true })
}
